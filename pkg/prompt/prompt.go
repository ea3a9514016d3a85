// Package prompt composes the role-specific system prompt sent with every question.
package prompt

import "fmt"

const (
	RoleTeacher = "Teacher"
	RoleStudent = "Student"
	RoleVisitor = "Visitor/Parent"

	DefaultInstitution = "Prince Zaid Bin Al-Hussein Vocational School"

	LanguageArabic  = "Arabic"
	LanguageEnglish = "English"
)

type Builder struct {
	Institution string
}

func NewBuilder(institution string) *Builder {
	if institution == "" {
		institution = DefaultInstitution
	}
	return &Builder{Institution: institution}
}

// Build uses the default institution.
func Build(role, context, question string) string {
	return NewBuilder(DefaultInstitution).Build(role, context, question)
}

// Build returns role framing followed by the base instruction. When context is
// non-empty the model is told to answer from it alone.
func (b *Builder) Build(role, context, question string) string {
	base := fmt.Sprintf("You are a smart assistant for %s. The answer must be in %s.",
		b.Institution, Language(question))

	if context != "" {
		base += "\nNote: base your answer only on the attached context. " +
			"If you cannot find the answer in the context, reply that you do not know." +
			"\n\nContext:\n" + context
	}

	return b.framing(role) + " " + base
}

func (b *Builder) framing(role string) string {
	switch role {
	case RoleTeacher:
		return fmt.Sprintf("You are a specialized assistant for teachers at %s. "+
			"Answer the school's administrative and educational questions.", b.Institution)
	case RoleStudent:
		return fmt.Sprintf("You are an academic advisor for students at %s. "+
			"Be friendly and explanatory.", b.Institution)
	default:
		return "You are a general assistant for visitors and parents. " +
			"Answer questions about admissions, enrollment and general school news politely and clearly."
	}
}

// Language picks the reply language from the question's script.
func Language(question string) string {
	if IsArabic(question) {
		return LanguageArabic
	}
	return LanguageEnglish
}

// IsArabic reports whether text has any rune in the Arabic block U+0600..U+06FF.
func IsArabic(text string) bool {
	for _, r := range text {
		if r >= '\u0600' && r <= '\u06FF' {
			return true
		}
	}
	return false
}
