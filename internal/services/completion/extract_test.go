package completion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractReply(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		body        string
		want        string
	}{
		{"reply wins", "application/json", `{"message":"second","reply":"first"}`, "first"},
		{"message", "application/json; charset=utf-8", `{"message":"Hi there"}`, "Hi there"},
		{"skips empty keys", "application/json", `{"reply":"","response":"third"}`, "third"},
		{"output", "application/json", `{"output":"out"}`, "out"},
		{"result", "application/json", `{"result":"res"}`, "res"},
		{"nested data", "application/json", `{"data":{"output":"nested"}}`, "nested"},
		{"nested reply", "application/json", `{"data":{"reply":"nested reply"}}`, "nested reply"},
		{"top level beats nested", "application/json", `{"result":"top","data":{"message":"nested"}}`, "top"},
		{"bare string", "application/json", `"just text"`, "just text"},
		{"fallback payload", "application/json", `{"answer":"x"}`, "{\n  \"answer\": \"x\"\n}"},
		{"non-string value", "application/json", `{"output":{"text":"t"}}`, "{\n  \"text\": \"t\"\n}"},
		{"malformed json", "application/json", `{"reply":`, `{"reply":`},
		{"plain text", "text/plain", "plain answer", "plain answer"},
		{"empty body", "text/plain", "", EmptyReplyNotice},
		{"whitespace reply", "application/json", `{"reply":"   "}`, EmptyReplyNotice},
		{"vendor json", "application/vnd.api+json", `{"message":"vendor"}`, "vendor"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractReply(tc.contentType, []byte(tc.body)))
		})
	}
}
