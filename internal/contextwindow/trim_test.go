package contextwindow

import (
	"strings"
	"testing"

	"github.com/duskcore/agentd/internal/domain/entity"
)

func msg(role entity.Role, content string) entity.Message {
	return entity.Message{Role: role, Content: content}
}

func TestTrim_NoPruningNeeded(t *testing.T) {
	history := []entity.Message{
		msg(entity.RoleSystem, "You are helpful."),
		msg(entity.RoleUser, "Hello"),
		msg(entity.RoleAssistant, "Hi there!"),
	}
	out := Trim(history, DefaultMaxTokens)
	if len(out) != len(history) {
		t.Fatalf("expected %d messages unchanged, got %d", len(history), len(out))
	}
}

func TestTrim_AlwaysKeepsSystemMessages(t *testing.T) {
	big := strings.Repeat("x", 500000)
	history := []entity.Message{
		msg(entity.RoleSystem, "system prompt"),
		msg(entity.RoleUser, big),
		msg(entity.RoleAssistant, big),
	}
	out := Trim(history, 10)
	if len(out) != 1 || out[0].Role != entity.RoleSystem {
		t.Fatalf("expected only the system message to survive an exhausted budget, got %+v", out)
	}
}

func TestTrim_ZeroBudgetKeepsOnlySystem(t *testing.T) {
	history := []entity.Message{
		msg(entity.RoleSystem, "sys"),
		msg(entity.RoleUser, "hello"),
	}
	out := Trim(history, 0)
	if len(out) != 1 || out[0].Role != entity.RoleSystem {
		t.Fatalf("expected only system messages at zero budget, got %+v", out)
	}
}

func TestTrim_PreservesChronologicalOrder(t *testing.T) {
	history := []entity.Message{
		msg(entity.RoleSystem, "sys"),
		msg(entity.RoleUser, "one"),
		msg(entity.RoleAssistant, "two"),
		msg(entity.RoleUser, "three"),
	}
	out := Trim(history, DefaultMaxTokens)
	want := []string{"sys", "one", "two", "three"}
	for i, m := range out {
		if m.Content != want[i] {
			t.Fatalf("order mismatch at %d: got %q want %q", i, m.Content, want[i])
		}
	}
}

func TestTrim_KeepsNewestSuffixWhenOverBudget(t *testing.T) {
	// Each non-system message costs Content-len/4 + 4 tokens (~29 tokens
	// for a 100-char body). Construct a budget that only fits the last two.
	body := strings.Repeat("a", 100)
	history := []entity.Message{
		msg(entity.RoleSystem, "sys"),
		msg(entity.RoleUser, body),    // oldest, should be dropped
		msg(entity.RoleAssistant, body),
		msg(entity.RoleUser, body), // newest, must survive
	}
	budget := 4 + 29*2 // system ("sys": 3/4 + 4 = 4 tokens) + two message bodies
	out := Trim(history, budget)

	if out[0].Role != entity.RoleSystem {
		t.Fatalf("expected system message first, got %+v", out[0])
	}
	if len(out) != 3 {
		t.Fatalf("expected system + 2 newest messages, got %d messages", len(out))
	}
}
