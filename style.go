package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styler resolves a calendar's display style from the configured rules.
type Styler struct {
	byKey    map[string]CalendarStyle
	keywords []keywordRule
	fallback CalendarStyle
}

type keywordRule struct {
	keywords []string
	style    CalendarStyle
}

func NewStyler(rules []StyleRule, fallback CalendarStyle) *Styler {
	s := &Styler{
		byKey:    make(map[string]CalendarStyle, len(rules)),
		fallback: fallback.withDefaults(DefaultCalendarStyle),
	}
	for _, rule := range rules {
		style := rule.CalendarStyle.withDefaults(s.fallback)

		if rule.Match == MatchContains {
			kr := keywordRule{style: style}
			words := rule.Keywords
			if len(words) == 0 {
				words = []string{rule.Calendar}
			}
			for _, w := range words {
				if w = normalizeName(w); w != "" {
					kr.keywords = append(kr.keywords, w)
				}
			}
			if len(kr.keywords) > 0 {
				s.keywords = append(s.keywords, kr)
			}
			continue
		}

		key := normalizeName(rule.Calendar)
		if key == "" {
			continue
		}
		s.byKey[key] = style
	}
	return s
}

// Resolve looks the calendar up by id, then by exact name, then by the first keyword
// rule whose keyword appears in the name.
func (s *Styler) Resolve(cal Calendar) CalendarStyle {
	if style, ok := s.byKey[strings.ToLower(cal.ID)]; ok && cal.ID != "" {
		return style
	}
	name := normalizeName(cal.Name)
	if name == "" {
		return s.fallback
	}
	if style, ok := s.byKey[name]; ok {
		return style
	}
	for _, rule := range s.keywords {
		for _, w := range rule.keywords {
			if strings.Contains(name, w) {
				return rule.style
			}
		}
	}
	return s.fallback
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (cs CalendarStyle) withDefaults(d CalendarStyle) CalendarStyle {
	if cs.Color == "" {
		cs.Color = d.Color
	}
	if cs.Border == "" {
		cs.Border = d.Border
	}
	if cs.Icon == "" {
		cs.Icon = d.Icon
	}
	return cs
}

// Chip renders text as a colored schedule label with a border-colored left edge.
func (cs CalendarStyle) Chip(text string) string {
	edge := lipgloss.NewStyle().Foreground(lipgloss.Color(cs.Border)).Render("▌")
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#ffffff")).
		Background(lipgloss.Color(cs.Color)).
		Render(text)
	return edge + body
}
