package completion

import (
	"bytes"
	"encoding/json"
	"mime"
	"strings"
)

// EmptyReplyNotice replaces a reply that is empty or only whitespace.
const EmptyReplyNotice = "I received your message but got an empty response. Please try rephrasing your question or check if the AI service is working properly."

// replyKeys is the lookup order for the reply text, at the top level and under "data".
var replyKeys = []string{"reply", "message", "response", "output", "result"}

// ExtractReply turns a response body into reply text. JSON bodies are searched for the
// first present, non-empty reply key; anything else is used verbatim.
func ExtractReply(contentType string, body []byte) string {
	text := string(body)
	if isJSON(contentType) {
		if extracted, ok := extractJSON(body); ok {
			text = extracted
		}
	}
	if strings.TrimSpace(text) == "" {
		return EmptyReplyNotice
	}
	return text
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func extractJSON(body []byte) (string, bool) {
	var payload interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return "", false
	}

	switch v := payload.(type) {
	case string:
		return v, true
	case map[string]interface{}:
		if s, ok := pick(v); ok {
			return s, true
		}
		if data, ok := v["data"].(map[string]interface{}); ok {
			if s, ok := pick(data); ok {
				return s, true
			}
		}
	}

	pretty, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", false
	}
	return string(pretty), true
}

func pick(obj map[string]interface{}) (string, bool) {
	for _, key := range replyKeys {
		val, ok := obj[key]
		if !ok || isEmptyValue(val) {
			continue
		}
		if s, ok := val.(string); ok {
			return s, true
		}
		pretty, err := json.MarshalIndent(val, "", "  ")
		if err != nil {
			continue
		}
		return string(pretty), true
	}
	return "", false
}

func isEmptyValue(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case json.Number:
		return t.String() == "0"
	default:
		return false
	}
}
