// Package masking redacts secret values from text streams.
package masking

import (
	"net/url"
	"sort"
	"strings"
)

const (
	// MaskString replaces every occurrence of a secret.
	MaskString = "*******"
	// MinLength is the shortest value that is masked. Shorter values would
	// mangle unrelated output.
	MinLength = 3
)

// Masker replaces known secret values in strings.
type Masker struct {
	values []string
	// replacer is nil when there is nothing to mask.
	replacer *strings.Replacer
}

// NewMasker creates a masker for the given secret values. Duplicates and
// values shorter than MinLength are ignored.
func NewMasker(secrets ...string) *Masker {
	seen := make(map[string]struct{}, len(secrets))
	values := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if len(s) < MinLength {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		values = append(values, s)
	}

	// Longest first so that a secret containing another is masked whole.
	sort.SliceStable(values, func(i, j int) bool { return len(values[i]) > len(values[j]) })

	m := &Masker{values: values}
	if len(values) > 0 {
		pairs := make([]string, 0, 2*len(values))
		for _, v := range values {
			pairs = append(pairs, v, MaskString)
		}
		m.replacer = strings.NewReplacer(pairs...)
	}
	return m
}

// Empty reports whether the masker has no secrets.
func (m *Masker) Empty() bool {
	return m == nil || m.replacer == nil
}

// MaskString replaces secret values in s.
func (m *Masker) MaskString(s string) string {
	if m.Empty() {
		return s
	}
	return m.replacer.Replace(s)
}

// MaskBytes replaces secret values in b.
func (m *Masker) MaskBytes(b []byte) []byte {
	if m.Empty() {
		return b
	}
	return []byte(m.replacer.Replace(string(b)))
}

// URLSecrets returns the password embedded in a connection URL, both raw
// and percent-encoded, so that it can be masked wherever it is echoed.
func URLSecrets(raw string) []string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.User == nil {
		return nil
	}
	password, ok := u.User.Password()
	if !ok || password == "" {
		return nil
	}
	secrets := []string{password}
	if escaped := url.QueryEscape(password); escaped != password {
		secrets = append(secrets, escaped)
	}
	return secrets
}
