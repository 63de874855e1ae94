package config

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// defaultSection is the implicit section of the configuration file.
// Keys in other sections are addressed as "section/key".
const defaultSection = "zine"

// endComment keys the comment block trailing the last value in the file.
const endComment = " end "

// quoteValue renders a raw value into file form. Values that would be
// ambiguous on re-read (surrounding whitespace, quote delimiters at the
// edges, embedded newlines) are double-quoted with backslash escapes.
func quoteValue(value string) string {
	if value == "" {
		return ""
	}
	trimmed := strings.TrimSpace(value) == value
	first, last := value[0], value[len(value)-1]
	edgeQuote := first == '"' || first == '\'' || last == '"' || last == '\''
	multiline := strings.ContainsAny(value, "\n\r")
	if trimmed && !edgeQuote && !multiline {
		return value
	}
	replacer := strings.NewReplacer(
		`\`, `\\`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
		`"`, `\"`,
	)
	return `"` + replacer.Replace(value) + `"`
}

// unquoteValue reverses quoteValue for values read from the file.
func unquoteValue(value string) string {
	if len(value) < 2 {
		return value
	}
	first := value[0]
	if (first != '"' && first != '\'') || value[len(value)-1] != first {
		return value
	}
	inner := value[1 : len(value)-1]
	var b strings.Builder
	b.Grow(len(inner))
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c != '\\' || i == len(inner)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch inner[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case '\'':
			b.WriteByte('\'')
		default:
			b.WriteByte('\\')
			b.WriteByte(inner[i])
		}
	}
	return b.String()
}

// parseFile reads the ini-style file into raw values and comments.
// Unknown keys are preserved so that settings of currently disabled
// plugins survive round trips. Comments stay attached to the key or
// section heading that follows them.
func parseFile(r io.Reader) (values map[string]string, comments map[string]string, err error) {
	values = make(map[string]string)
	comments = make(map[string]string)
	section := defaultSection
	var pending strings.Builder

	attach := func(key string) {
		if strings.TrimSpace(pending.String()) != "" {
			comments[key] = pending.String()
		}
		pending.Reset()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || line[0] == '#' || line[0] == ';':
			pending.WriteString(line)
			pending.WriteString("\n")
		case line[0] == '[' && line[len(line)-1] == ']':
			section = strings.TrimSpace(line[1 : len(line)-1])
			attach("[" + section + "]")
		case !strings.Contains(line, "="):
			key := qualifyKey(section, line)
			values[key] = ""
			attach(key)
		default:
			rawKey, rawValue, _ := strings.Cut(line, "=")
			key := qualifyKey(section, strings.TrimSpace(rawKey))
			values[key] = unquoteValue(strings.TrimSpace(rawValue))
			attach(key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read configuration: %w", err)
	}
	if strings.TrimSpace(pending.String()) != "" {
		comments[endComment] = pending.String()
	}
	return values, comments, nil
}

// renderFile writes the full file image for the given raw values,
// grouping keys into sections with the default section first and keys
// sorted within each section.
func renderFile(values, comments map[string]string) []byte {
	sections := make(map[string][]string)
	for key := range values {
		section, name := splitKey(key)
		sections[section] = append(sections[section], name)
	}

	order := make([]string, 0, len(sections))
	if _, ok := sections[defaultSection]; ok {
		order = append(order, defaultSection)
	}
	for _, section := range sortedKeys(sections) {
		if section != defaultSection {
			order = append(order, section)
		}
	}

	var b strings.Builder
	for idx, section := range order {
		if comment, ok := comments["["+section+"]"]; ok {
			b.WriteString(comment)
		} else if idx > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s]\n", section)
		names := sections[section]
		sort.Strings(names)
		for _, name := range names {
			key := qualifyKey(section, name)
			if comment, ok := comments[key]; ok {
				b.WriteString(comment)
			}
			fmt.Fprintf(&b, "%s = %s\n", name, quoteValue(values[key]))
		}
	}
	if comment, ok := comments[endComment]; ok {
		b.WriteString(comment)
	}
	return []byte(b.String())
}

// qualifyKey returns the storage key for a section/name pair. Keys in the
// default section carry no prefix.
func qualifyKey(section, name string) string {
	if section == defaultSection {
		return name
	}
	return section + "/" + name
}

// splitKey reverses qualifyKey.
func splitKey(key string) (section, name string) {
	if s, n, ok := strings.Cut(key, "/"); ok {
		return s, n
	}
	return defaultSection, key
}

// normalizeKey strips an explicit default-section prefix.
func normalizeKey(key string) string {
	return strings.TrimPrefix(key, defaultSection+"/")
}
