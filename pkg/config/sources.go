package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/ccollicutt/dropboxlog/pkg/dropbox"
	"github.com/ccollicutt/dropboxlog/pkg/exporter"
)

// SourceOptions tune how sources are opened.
type SourceOptions struct {
	// ADBRunner replaces the adb executor. Nil runs the real binary.
	ADBRunner dropbox.Runner
}

// Sources returns an opener for the configured sources. A single source is
// opened directly, several are merged by timestamp.
func Sources(srcs []SourceConfig, opts SourceOptions) exporter.Opener {
	return func(ctx context.Context) (dropbox.Source, error) {
		if len(srcs) == 0 {
			return nil, errors.New("no sources configured")
		}

		var opened []dropbox.Source
		closeAll := func() {
			for _, s := range opened {
				_ = s.Close()
			}
		}

		for i := range srcs {
			got, err := openSource(ctx, &srcs[i], opts)
			if err != nil {
				closeAll()
				return nil, fmt.Errorf("sources[%d] (%s): %w", i, srcs[i].Type, err)
			}
			opened = append(opened, got...)
		}

		if len(opened) == 1 {
			return opened[0], nil
		}
		return dropbox.NewMergedSource(opened...), nil
	}
}

func openSource(ctx context.Context, src *SourceConfig, opts SourceOptions) ([]dropbox.Source, error) {
	switch src.SourceTypeEnum() {
	case SourceTypeDir:
		dirs, err := dropbox.ExpandDirs([]string{src.Path})
		if err != nil {
			return nil, err
		}
		if len(dirs) == 0 {
			return nil, fmt.Errorf("no dropbox directory matches %q", src.Path)
		}
		out := make([]dropbox.Source, 0, len(dirs))
		for _, d := range dirs {
			s, err := dropbox.OpenDir(d)
			if err != nil {
				for _, o := range out {
					_ = o.Close()
				}
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil

	case SourceTypeADB:
		s, err := dropbox.OpenADB(ctx, dropbox.ADBConfig{
			Serial:     src.Serial,
			RemotePath: src.RemotePath,
			ADBPath:    src.ADBPath,
			Runner:     opts.ADBRunner,
		})
		if err != nil {
			return nil, err
		}
		return []dropbox.Source{s}, nil

	case SourceTypeSQLite:
		a, err := dropbox.OpenArchive(src.Path)
		if err != nil {
			return nil, err
		}
		return []dropbox.Source{a}, nil

	default:
		return nil, fmt.Errorf("unknown source type %q", src.Type)
	}
}

// WatchDirs returns the expanded directories of all dir sources.
func (c *Config) WatchDirs() ([]string, error) {
	var patterns []string
	for _, s := range c.Sources {
		if s.SourceTypeEnum() == SourceTypeDir {
			patterns = append(patterns, s.Path)
		}
	}
	if len(patterns) == 0 {
		return nil, nil
	}
	return dropbox.ExpandDirs(patterns)
}
