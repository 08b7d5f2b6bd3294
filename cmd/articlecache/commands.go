package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/KOMKZ/go-yogan-articlecache/application"
	"github.com/KOMKZ/go-yogan-articlecache/article"
	"github.com/KOMKZ/go-yogan-articlecache/config"
	"github.com/KOMKZ/go-yogan-articlecache/flagx"
	"github.com/spf13/cobra"
)

var version = "dev"

// rootFlags 全局参数
type rootFlags struct {
	ConfigPath string `flag:"config-path" usage:"配置目录，读取 config.yaml 与 <APP_ENV>.yaml" default:"./configs"`
	ConfigFile string `flag:"config,c" usage:"显式指定配置文件"`
}

// newApp 加载配置并创建应用
type newApp func(opts config.ProvideLoaderOptions) (*application.Application, error)

func defaultNewApp(opts config.ProvideLoaderOptions) (*application.Application, error) {
	cfg, err := application.Load(opts)
	if err != nil {
		return nil, err
	}
	return application.New(cfg)
}

func newRootCmd(create newApp) *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:           "articlecache",
		Short:         "Tiered article cache service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	if err := flagx.BindPersistent(root, &flags); err != nil {
		panic(err)
	}

	load := func(cmd *cobra.Command) (*application.Application, error) {
		if err := flagx.Parse(cmd, &flags); err != nil {
			return nil, err
		}
		return create(config.ProvideLoaderOptions{
			ConfigPath: flags.ConfigPath,
			ConfigFile: flags.ConfigFile,
			EnvPrefix:  application.EnvPrefix,
		})
	}

	root.AddCommand(
		newServeCmd(load),
		newWarmCmd(load),
		newMetricsCmd(load),
		newPublishCmd(load),
	)
	return root
}

type loadFunc func(cmd *cobra.Command) (*application.Application, error)

func newServeCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the cache warmer and the article consumer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := load(cmd)
			if err != nil {
				return err
			}
			return app.Run(cmd.Context())
		},
	}
}

// warmFlags warm 子命令参数
type warmFlags struct {
	Partitions []string `flag:"partitions,p" usage:"只预热这些分区（默认全部）"`
}

func newWarmCmd(load loadFunc) *cobra.Command {
	var flags warmFlags
	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Run one warm-up cycle and print the report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flagx.Parse(cmd, &flags); err != nil {
				return err
			}
			app, err := load(cmd)
			if err != nil {
				return err
			}
			defer app.Shutdown(30 * time.Second)

			if len(flags.Partitions) > 0 {
				app.Config().Warmer.Partitions = flags.Partitions
			}
			if err := app.Setup(); err != nil {
				return err
			}
			report, err := app.Warm(cmd.Context())
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if failed := report.Failed(); len(failed) > 0 {
				return fmt.Errorf("warm-up failed for partitions %v", failed)
			}
			return nil
		},
	}
	if err := flagx.Bind(cmd, &flags); err != nil {
		panic(err)
	}
	return cmd
}

// metricsFlags metrics 子命令参数
type metricsFlags struct {
	Domains []string `flag:"domains,d" usage:"统计域（默认 metrics.domains）"`
}

func newMetricsCmd(load loadFunc) *cobra.Command {
	var flags metricsFlags
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Print the shared cache hit/miss counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flagx.Parse(cmd, &flags); err != nil {
				return err
			}
			app, err := load(cmd)
			if err != nil {
				return err
			}
			defer app.Shutdown(5 * time.Second)

			snapshots, err := app.Snapshots(cmd.Context(), flags.Domains...)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), snapshots)
		},
	}
	if err := flagx.Bind(cmd, &flags); err != nil {
		panic(err)
	}
	return cmd
}

// publishFlags publish 子命令参数
type publishFlags struct {
	Title   string `flag:"title,t" usage:"标题" required:"true"`
	Content string `flag:"content" usage:"正文"`
	Author  string `flag:"author,a" usage:"作者"`
	Region  string `flag:"region,r" usage:"区域（默认 ingest.default_region）"`
}

func (f *publishFlags) draft() article.Draft {
	return article.Draft{Title: f.Title, Content: f.Content, Author: f.Author, Region: f.Region}
}

func newPublishCmd(load loadFunc) *cobra.Command {
	var flags publishFlags
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish an article to the ingest topic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flagx.Parse(cmd, &flags); err != nil {
				return err
			}
			app, err := load(cmd)
			if err != nil {
				return err
			}
			defer app.Shutdown(10 * time.Second)

			if err := app.Publish(cmd.Context(), flags.draft()); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "published")
			return err
		},
	}
	if err := flagx.Bind(cmd, &flags); err != nil {
		panic(err)
	}
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
