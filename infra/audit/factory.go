package audit

import (
	coreaudit "github.com/hmctl/hmdispatch/core/audit"
	"github.com/hmctl/hmdispatch/core/factory"
)

// init registers the built-in audit stores.
func init() {
	_ = coreaudit.RegisterStore("sqlite", func(conf map[string]any) (coreaudit.Store, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewSQLiteStore(c.Path)
	})

	_ = coreaudit.RegisterStore("jsonl", func(conf map[string]any) (coreaudit.Store, error) {
		var c struct {
			Path       string `json:"path"`
			MaxSizeMB  int    `json:"max_size_mb"`
			MaxBackups int    `json:"max_backups"`
			MaxAgeDays int    `json:"max_age_days"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.MaxSizeMB > 0 {
			return NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
		}
		return NewJSONLStore(c.Path)
	})
}
