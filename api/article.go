package api

import (
	"context"
	"time"

	"github.com/KOMKZ/go-yogan-articlecache/article"
	"github.com/KOMKZ/go-yogan-articlecache/httpx"
	"github.com/KOMKZ/go-yogan-articlecache/httpx/types"
	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ArticleService cached article read/write path
type ArticleService interface {
	Get(ctx context.Context, region string, id int64) (*article.Article, bool, error)
	Create(ctx context.Context, region string, a *article.Article) (*article.Article, error)
	Update(ctx context.Context, region string, id int64, patch article.Patch) (*article.Article, bool, error)
	Delete(ctx context.Context, region string, id int64) (bool, error)
}

// RecentLister reads recently created articles straight from the store
type RecentLister interface {
	FindRecent(ctx context.Context, region string, since time.Time) ([]*article.Article, error)
}

// ArticleHandler /api/article 路由
type ArticleHandler struct {
	service ArticleService
	recent  RecentLister
	regions article.Regions
	window  time.Duration
	now     func() time.Time
}

// NewArticleHandler creates the handler; requests for a region outside regions get 404
func NewArticleHandler(service ArticleService, recent RecentLister, regions article.Regions, window time.Duration) *ArticleHandler {
	return &ArticleHandler{
		service: service,
		recent:  recent,
		regions: regions,
		window:  window,
		now:     time.Now,
	}
}

// Register 注册路由
func (h *ArticleHandler) Register(r gin.IRouter) {
	g := r.Group("/api/article")
	g.GET("/:region", httpx.Wrap(h.List))
	g.POST("/:region", httpx.Wrap(h.Create))
	g.GET("/:region/:id", httpx.Wrap(h.Get))
	g.PATCH("/:region/:id", httpx.Wrap(h.Update))
	g.DELETE("/:region/:id", httpx.Wrap(h.Delete))
}

// resolveRegion 把路径中的区域改写为配置中的写法，/api/article/Europe 与 /api/article/europe 命中同一套缓存键
func (h *ArticleHandler) resolveRegion(region *string) error {
	name, err := h.regions.Resolve(*region)
	if err != nil {
		return err
	}
	*region = name
	return nil
}

// ArticleKeyRequest region + id from the path
type ArticleKeyRequest struct {
	Region string `uri:"region" json:"-"`
	ID     int64  `uri:"id" json:"-"`
}

// Validate implements validator.Validatable
func (r *ArticleKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Region, validation.Required),
		validation.Field(&r.ID, validation.Required, validation.Min(int64(1))),
	)
}

// Get GET /api/article/:region/:id
func (h *ArticleHandler) Get(c *gin.Context, req *ArticleKeyRequest) (*article.Article, error) {
	if err := h.resolveRegion(&req.Region); err != nil {
		return nil, err
	}
	a, ok, err := h.service.Get(c.Request.Context(), req.Region, req.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, article.ErrNotFound.WithMsgf("article %d not found in %s", req.ID, req.Region)
	}
	return a, nil
}

// CreateArticleRequest POST body
type CreateArticleRequest struct {
	Region  string `uri:"region" json:"-"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Author  string `json:"author"`
}

// Validate implements validator.Validatable
func (r *CreateArticleRequest) Validate() error {
	if err := validation.ValidateStruct(r, validation.Field(&r.Region, validation.Required)); err != nil {
		return err
	}
	return r.draft().Validate()
}

func (r *CreateArticleRequest) draft() article.Draft {
	return article.Draft{Title: r.Title, Content: r.Content, Author: r.Author, Region: r.Region}
}

// Create POST /api/article/:region
func (h *ArticleHandler) Create(c *gin.Context, req *CreateArticleRequest) (*article.Article, error) {
	if err := h.resolveRegion(&req.Region); err != nil {
		return nil, err
	}
	return h.service.Create(c.Request.Context(), req.Region, req.draft().ToArticle(req.Region))
}

// UpdateArticleRequest PATCH body; absent fields are left unchanged
type UpdateArticleRequest struct {
	Region  string  `uri:"region" json:"-"`
	ID      int64   `uri:"id" json:"-"`
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Author  *string `json:"author"`
}

func (r *UpdateArticleRequest) patch() article.Patch {
	return article.Patch{Title: r.Title, Content: r.Content, Author: r.Author}
}

// Validate implements validator.Validatable
func (r *UpdateArticleRequest) Validate() error {
	key := ArticleKeyRequest{Region: r.Region, ID: r.ID}
	if err := key.Validate(); err != nil {
		return err
	}
	return r.patch().Validate()
}

// Update PATCH /api/article/:region/:id
func (h *ArticleHandler) Update(c *gin.Context, req *UpdateArticleRequest) (*article.Article, error) {
	if err := h.resolveRegion(&req.Region); err != nil {
		return nil, err
	}
	a, ok, err := h.service.Update(c.Request.Context(), req.Region, req.ID, req.patch())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, article.ErrNotFound.WithMsgf("article %d not found in %s", req.ID, req.Region)
	}
	return a, nil
}

// DeleteResponse DELETE result
type DeleteResponse struct {
	Region  string `json:"region"`
	ID      int64  `json:"id"`
	Deleted bool   `json:"deleted"`
}

// Delete DELETE /api/article/:region/:id
func (h *ArticleHandler) Delete(c *gin.Context, req *ArticleKeyRequest) (*DeleteResponse, error) {
	if err := h.resolveRegion(&req.Region); err != nil {
		return nil, err
	}
	deleted, err := h.service.Delete(c.Request.Context(), req.Region, req.ID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, article.ErrNotFound.WithMsgf("article %d not found in %s", req.ID, req.Region)
	}
	return &DeleteResponse{Region: req.Region, ID: req.ID, Deleted: true}, nil
}

// ListArticlesRequest GET /api/article/:region query
type ListArticlesRequest struct {
	Region string `uri:"region" json:"-"`
	types.PageQuery
}

// Validate implements validator.Validatable
func (r *ListArticlesRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Region, validation.Required),
		validation.Field(&r.Current, validation.Min(0)),
		validation.Field(&r.Size, validation.Min(0)),
	)
}

// ListArticlesResponse one page of recent articles
type ListArticlesResponse struct {
	List []*article.Article `json:"list"`
	Page types.PageMeta     `json:"page"`
}

// List GET /api/article/:region, newest first within the recent window
func (h *ArticleHandler) List(c *gin.Context, req *ListArticlesRequest) (*ListArticlesResponse, error) {
	if err := h.resolveRegion(&req.Region); err != nil {
		return nil, err
	}

	rows, err := h.recent.FindRecent(c.Request.Context(), req.Region, h.now().Add(-h.window))
	if err != nil {
		return nil, err
	}

	list, page := types.Paginate(rows, req.PageQuery)
	return &ListArticlesResponse{List: list, Page: page}, nil
}
