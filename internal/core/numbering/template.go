package numbering

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"docnum/internal/core/apperror"
)

// Template tokens.
const (
	TokenProject = "PROJECT"
	TokenYear    = "YYYY"
	TokenMonth   = "MM"
	TokenDay     = "DD"
	TokenSeq     = "SEQ"
)

const (
	// DefaultPadding is used when a series has no positive padding configured.
	DefaultPadding = 3

	// DefaultSequenceStart is the first value of a new bucket when the series has none.
	DefaultSequenceStart int64 = 1

	// MaxNumberLength is the width of the stored document number.
	MaxNumberLength = 50

	// FallbackProjectCode is rendered when the project has no usable code or name.
	FallbackProjectCode = "NA"

	draftPrefix = "DRAFT-"
)

var (
	supportedTokens = [...]string{TokenProject, TokenYear, TokenMonth, TokenDay, TokenSeq}

	placeholderPattern = regexp.MustCompile(`\{([^{}]*)\}`)
	knownTokenPattern  = regexp.MustCompile(`(?i)\{(PROJECT|YYYY|MM|DD|SEQ)\}`)

	upper = cases.Upper(language.Und)
)

// SupportedTokens returns the placeholders a template may use, in braces.
func SupportedTokens() []string {
	out := make([]string, len(supportedTokens))
	for i, t := range supportedTokens {
		out[i] = "{" + t + "}"
	}
	return out
}

func isSupportedToken(name string) bool {
	for _, t := range supportedTokens {
		if strings.EqualFold(name, t) {
			return true
		}
	}
	return false
}

// ValidateTemplate checks that template is non-empty, uses only supported
// placeholders and contains {SEQ}.
func ValidateTemplate(template string) error {
	if strings.TrimSpace(template) == "" {
		return apperror.NewConfiguration(apperror.CodeInvalidTemplate, "template is empty")
	}

	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if !isSupportedToken(m[1]) {
			supported := strings.Join(SupportedTokens(), ", ")
			return apperror.NewConfiguration(apperror.CodeInvalidTemplate,
				fmt.Sprintf("unsupported token %q in template; supported tokens: %s", m[1], supported)).
				WithDetail("token", m[1]).
				WithDetail("supported", SupportedTokens())
		}
	}

	if !strings.Contains(strings.ToUpper(template), "{"+TokenSeq+"}") {
		return apperror.NewConfiguration(apperror.CodeInvalidTemplate,
			"template must contain {SEQ}").
			WithDetail("template", template)
	}
	return nil
}

// SanitizeProjectCode keeps letters and digits, upper-cases them and falls back
// to NA when nothing is left.
func SanitizeProjectCode(code string) string {
	var b strings.Builder
	for _, r := range code {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return FallbackProjectCode
	}
	return upper.String(b.String())
}

// FormatSequence zero-pads seq to padding digits. Wider values are never truncated.
func FormatSequence(seq int64, padding int) string {
	if padding <= 0 {
		padding = DefaultPadding
	}
	return fmt.Sprintf("%0*d", padding, seq)
}

// RenderTemplate substitutes every supported placeholder. Date parts come from at in UTC.
// Tokens match case-insensitively; anything else in the template is copied verbatim.
func RenderTemplate(template, projectCode string, at time.Time, seq int64, padding int) string {
	at = at.UTC()
	project := SanitizeProjectCode(projectCode)

	return knownTokenPattern.ReplaceAllStringFunc(template, func(token string) string {
		switch strings.ToUpper(token[1 : len(token)-1]) {
		case TokenProject:
			return project
		case TokenYear:
			return fmt.Sprintf("%04d", at.Year())
		case TokenMonth:
			return fmt.Sprintf("%02d", int(at.Month()))
		case TokenDay:
			return fmt.Sprintf("%02d", at.Day())
		case TokenSeq:
			return FormatSequence(seq, padding)
		}
		return token
	})
}

// CheckLength rejects rendered numbers that do not fit the stored column.
func CheckLength(number string) error {
	if n := utf8.RuneCountInString(number); n > MaxNumberLength {
		return apperror.NewConfiguration(apperror.CodeNumberTooLong,
			fmt.Sprintf("document number is %d characters long; at most %d fit", n, MaxNumberLength)).
			WithDetail("number", number).
			WithDetail("max", MaxNumberLength)
	}
	return nil
}

// IsDraftNumber reports whether value is still a placeholder: blank, or starting
// with DRAFT- in any case.
func IsDraftNumber(value string) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return true
	}
	return len(v) >= len(draftPrefix) && strings.EqualFold(v[:len(draftPrefix)], draftPrefix)
}
