package api

import (
	"context"

	"github.com/KOMKZ/go-yogan-articlecache/article"
	"github.com/KOMKZ/go-yogan-articlecache/comment"
	"github.com/KOMKZ/go-yogan-articlecache/httpx"
	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// CommentService cached comment lists
type CommentService interface {
	List(ctx context.Context, region string, articleID int64) ([]*comment.Comment, error)
	Get(ctx context.Context, region string, id int64) (*comment.Comment, bool, error)
	Post(ctx context.Context, region string, articleID int64, d comment.Draft) (*comment.Comment, error)
	Recent(ctx context.Context, region string) ([]*comment.Comment, error)
}

// CommentHandler /api/comment 路由
type CommentHandler struct {
	service CommentService
	regions article.Regions
}

// NewCommentHandler creates the handler
func NewCommentHandler(service CommentService, regions article.Regions) *CommentHandler {
	return &CommentHandler{service: service, regions: regions}
}

// Register 注册路由
func (h *CommentHandler) Register(r gin.IRouter) {
	g := r.Group("/api/comment")
	g.GET("/:region", httpx.Wrap(h.Recent))
	g.GET("/:region/:articleId", httpx.Wrap(h.List))
	g.POST("/:region/:articleId", httpx.Wrap(h.Post))
	g.GET("/:region/:articleId/:id", httpx.Wrap(h.Get))
}

// CommentListRequest region + article from the path
type CommentListRequest struct {
	Region    string `uri:"region" json:"-"`
	ArticleID int64  `uri:"articleId" json:"-"`
}

// Validate implements validator.Validatable
func (r *CommentListRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Region, validation.Required),
		validation.Field(&r.ArticleID, validation.Required, validation.Min(int64(1))),
	)
}

// CommentListResponse comments of one article, oldest first
type CommentListResponse struct {
	ArticleID int64              `json:"article_id"`
	List      []*comment.Comment `json:"list"`
}

// List GET /api/comment/:region/:articleId
func (h *CommentHandler) List(c *gin.Context, req *CommentListRequest) (*CommentListResponse, error) {
	region, err := h.regions.Resolve(req.Region)
	if err != nil {
		return nil, err
	}
	list, err := h.service.List(c.Request.Context(), region, req.ArticleID)
	if err != nil {
		return nil, err
	}
	return &CommentListResponse{ArticleID: req.ArticleID, List: list}, nil
}

// PostCommentRequest POST body
type PostCommentRequest struct {
	CommentListRequest
	comment.Draft
}

// Validate implements validator.Validatable
func (r *PostCommentRequest) Validate() error {
	if err := r.CommentListRequest.Validate(); err != nil {
		return err
	}
	return r.Draft.Validate()
}

// Post POST /api/comment/:region/:articleId
func (h *CommentHandler) Post(c *gin.Context, req *PostCommentRequest) (*comment.Comment, error) {
	region, err := h.regions.Resolve(req.Region)
	if err != nil {
		return nil, err
	}
	return h.service.Post(c.Request.Context(), region, req.ArticleID, req.Draft)
}

// CommentKeyRequest region + article + comment id from the path
type CommentKeyRequest struct {
	CommentListRequest
	ID int64 `uri:"id" json:"-"`
}

// Validate implements validator.Validatable
func (r *CommentKeyRequest) Validate() error {
	if err := r.CommentListRequest.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(r, validation.Field(&r.ID, validation.Required, validation.Min(int64(1))))
}

// Get GET /api/comment/:region/:articleId/:id
func (h *CommentHandler) Get(c *gin.Context, req *CommentKeyRequest) (*comment.Comment, error) {
	region, err := h.regions.Resolve(req.Region)
	if err != nil {
		return nil, err
	}
	cm, ok, err := h.service.Get(c.Request.Context(), region, req.ID)
	if err != nil {
		return nil, err
	}
	if !ok || cm.ArticleID != req.ArticleID {
		return nil, comment.ErrNotFound.WithMsgf("comment %d not found on article %d", req.ID, req.ArticleID)
	}
	return cm, nil
}

// RecentCommentsRequest region from the path
type RecentCommentsRequest struct {
	Region string `uri:"region" json:"-"`
}

// RecentCommentsResponse newest comments of a region
type RecentCommentsResponse struct {
	Region string             `json:"region"`
	List   []*comment.Comment `json:"list"`
}

// Recent GET /api/comment/:region
func (h *CommentHandler) Recent(c *gin.Context, req *RecentCommentsRequest) (*RecentCommentsResponse, error) {
	region, err := h.regions.Resolve(req.Region)
	if err != nil {
		return nil, err
	}
	list, err := h.service.Recent(c.Request.Context(), region)
	if err != nil {
		return nil, err
	}
	return &RecentCommentsResponse{Region: region, List: list}, nil
}
