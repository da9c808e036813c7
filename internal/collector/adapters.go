package collector

import (
	"fmt"

	"github.com/LJTian/TejoMag/internal/config"
)

// NewAdapters 按配置构建站点适配器，顺序与配置一致
func NewAdapters(cfgs []config.SourceConfig) ([]Adapter, error) {
	out := make([]Adapter, 0, len(cfgs))
	for _, sc := range cfgs {
		switch sc.Kind {
		case "html", "":
			out = append(out, NewHTMLAdapter(sc))
		case "feed":
			out = append(out, NewFeedAdapter(sc))
		default:
			return nil, fmt.Errorf("source %q: unknown kind %q", sc.Name, sc.Kind)
		}
	}
	return out, nil
}
