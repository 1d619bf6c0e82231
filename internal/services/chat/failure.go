package chat

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/iyunix/go-juri/internal/domain"
)

const failureTemplate = `**%s**

%s

**Solutions:**
%s

**Error:** %s`

type failureKind struct {
	title     string
	summary   string
	solutions string
}

var (
	timeoutFailure = failureKind{
		title:   "Request Timeout",
		summary: "The AI service is taking longer than expected to respond.",
		solutions: `- Try again in a few moments
- If uploading a file, ensure it's not too large
- Check your internet connection
- The AI service might be busy processing other requests`,
	}
	networkFailure = failureKind{
		title:   "Connection Issue",
		summary: "Unable to connect to the AI service due to a network error.",
		solutions: `- Check your internet connection
- Ensure the AI webhook is reachable from this server
- Try again in a few moments
- Contact support if the issue persists`,
	}
	serverFailure = failureKind{
		title:   "Server Error",
		summary: "The AI service encountered an internal error while processing your request.",
		solutions: `- Try again in a few moments
- If uploading a file, ensure it's a valid PDF, DOCX, DOC, RTF, or TXT file
- Check the workflow logs for detailed error information
- Verify all workflow nodes are properly configured`,
	}
	notFoundFailure = failureKind{
		title:   "Service Not Found",
		summary: "The AI service endpoint could not be found.",
		solutions: `- Verify the webhook URL is correct
- Ensure the workflow is active and published
- Check if the webhook path has changed`,
	}
	badRequestFailure = failureKind{
		title:   "Invalid Request",
		summary: "The request format was not accepted by the AI service.",
		solutions: `- Try rephrasing your question
- If uploading a file, ensure it's in a supported format
- Check that the file is not corrupted`,
	}
	cancelledFailure = failureKind{
		title:   "Request Cancelled",
		summary: "The request was stopped before the AI service replied.",
		solutions: `- Send the message again when you are ready
- Use regenerate on this message to retry the same question`,
	}
	unexpectedFailure = failureKind{
		title:   "Unexpected Error",
		summary: "An error occurred while processing your request.",
		solutions: `- Try again in a few moments
- Check the server logs for additional details
- Ensure the AI service is reachable
- Contact support if the issue persists`,
	}
)

// FailureText renders a failed turn as a categorized, human-readable message that
// keeps the raw error for diagnosis.
func FailureText(err error) string {
	kind := classifyFailure(err)
	return fmt.Sprintf(failureTemplate, kind.title, kind.summary, kind.solutions, err.Error())
}

func classifyFailure(err error) failureKind {
	switch domain.KindOf(err) {
	case domain.ErrKindTimeout:
		return timeoutFailure
	case domain.ErrKindNetwork:
		return networkFailure
	case domain.ErrKindCancelled:
		return cancelledFailure
	case domain.ErrKindHTTP:
		return httpFailure(statusOf(err))
	default:
		return unexpectedFailure
	}
}

func httpFailure(status int) failureKind {
	switch {
	case status >= http.StatusInternalServerError:
		return serverFailure
	case status == http.StatusNotFound:
		return notFoundFailure
	case status == http.StatusBadRequest:
		return badRequestFailure
	default:
		return unexpectedFailure
	}
}

func statusOf(err error) int {
	var chatErr *domain.ChatError
	if errors.As(err, &chatErr) {
		return chatErr.Status
	}
	return 0
}
