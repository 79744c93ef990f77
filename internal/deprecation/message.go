package deprecation

import (
	"fmt"
	"strings"

	"artipub/internal/buildinfo"
)

const docsBaseURL = "https://artipub.dev/docs/upgrading"

// Message is a fully rendered deprecation notice.
type Message struct {
	Summary        string
	RemovalDetails string
	Context        string
	Advice         string
	Documentation  string
}

func (m Message) String() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{m.Summary, m.RemovalDetails, m.Context, m.Advice, m.Documentation} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// MessageBuilder assembles a Message. The zero value is not useful; start from
// Behaviour, SpecificThing or Indirect.
type MessageBuilder struct {
	summary       string
	removal       string
	context       string
	advice        string
	documentation string
}

// Behaviour describes a deprecated way of doing something rather than a named API.
func Behaviour(behaviour string) *MessageBuilder {
	return &MessageBuilder{
		summary: behaviour,
		removal: fmt.Sprintf("This behavior has been deprecated and is scheduled to be removed in %s %s.", buildinfo.ToolName, buildinfo.NextMajor()),
	}
}

// SpecificThing describes a named option, key or command that is going away.
func SpecificThing(thing string) *MessageBuilder {
	return &MessageBuilder{
		summary: fmt.Sprintf("%s has been deprecated.", thing),
		removal: removalOfThing(),
	}
}

// Indirect uses the summary as given, for usages that are reported on behalf of something else.
func Indirect(summary string) *MessageBuilder {
	return &MessageBuilder{summary: summary, removal: removalOfThing()}
}

func removalOfThing() string {
	return fmt.Sprintf("This is scheduled to be removed in %s %s.", buildinfo.ToolName, buildinfo.NextMajor())
}

func (b *MessageBuilder) WithContext(context string) *MessageBuilder {
	b.context = context
	return b
}

func (b *MessageBuilder) WithAdvice(advice string) *MessageBuilder {
	b.advice = advice
	return b
}

func (b *MessageBuilder) ReplaceWith(replacement string) *MessageBuilder {
	b.advice = fmt.Sprintf("Please use %s instead.", replacement)
	return b
}

func (b *MessageBuilder) WithDocumentation(section string) *MessageBuilder {
	b.documentation = fmt.Sprintf("See %s#%s for more details.", docsBaseURL, section)
	return b
}

func (b *MessageBuilder) Build() Message {
	return Message{
		Summary:        b.summary,
		RemovalDetails: b.removal,
		Context:        b.context,
		Advice:         b.advice,
		Documentation:  b.documentation,
	}
}
