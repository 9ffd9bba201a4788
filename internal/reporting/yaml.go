package reporting

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"
)

// RenderYAML renders the summary tables as a YAML document. Keys keep the
// table order.
func RenderYAML(r *Report) ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	appendScalar(doc, "title", r.Title())
	appendScalar(doc, "generated", r.GeneratedAt.Format(time.RFC3339))
	appendSection(doc, "settings", r.SettingRows())
	appendSection(doc, "trades", r.TradeRows())
	appendSection(doc, "daily_statistics", r.DailyRows())

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml report: %w", err)
	}
	return out, nil
}

func appendScalar(m *yaml.Node, key, value string) {
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Value: value, Tag: "!!str"},
	)
}

func appendSection(m *yaml.Node, key string, rows []Row) {
	if len(rows) == 0 {
		return
	}
	section := &yaml.Node{Kind: yaml.MappingNode}
	for _, row := range rows {
		appendScalar(section, yamlKey(row.Name), row.Value)
	}
	m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, section)
}

// yamlKey turns "Max drawdown %" into "max_drawdown_pct".
func yamlKey(name string) string {
	name = strings.ReplaceAll(name, "%", "pct")
	name = strings.ReplaceAll(name, "/", " ")
	var b strings.Builder
	sep := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			sep = false
			continue
		}
		sep = true
	}
	return b.String()
}
