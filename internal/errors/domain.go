package errors

import (
	stderrors "errors"

	"github.com/sadwiik06/SocialFlow/internal/auth"
	"github.com/sadwiik06/SocialFlow/internal/content"
	"github.com/sadwiik06/SocialFlow/internal/feed"
	"github.com/sadwiik06/SocialFlow/internal/interaction"
	"github.com/sadwiik06/SocialFlow/internal/media"
	"github.com/sadwiik06/SocialFlow/internal/store"
	"github.com/sadwiik06/SocialFlow/internal/validation"
)

// FromDomain maps service and store errors onto API errors. Unknown errors
// become INTERNAL_ERROR without leaking their text.
func FromDomain(err error) *APIError {
	if err == nil {
		return nil
	}
	if apiErr, ok := As(err); ok {
		return apiErr
	}

	var fe *validation.FieldError
	if stderrors.As(err, &fe) {
		return ValidationError(fe.Field, fe.Message)
	}

	switch {
	case stderrors.Is(err, store.ErrNotFound):
		return NotFound("resource")
	case stderrors.Is(err, feed.ErrOutOfRange):
		return NotFound("reel")
	case stderrors.Is(err, store.ErrDuplicate), stderrors.Is(err, auth.ErrUserExists):
		return Conflict(err.Error())
	case stderrors.Is(err, auth.ErrInvalidCredentials), stderrors.Is(err, auth.ErrInvalidToken):
		return Unauthorized(err.Error())
	case stderrors.Is(err, content.ErrForbidden):
		return Forbidden(err.Error())
	case stderrors.Is(err, interaction.ErrCommentTooLong),
		stderrors.Is(err, interaction.ErrCommentEmpty):
		return ValidationError("text", err.Error())
	case stderrors.Is(err, content.ErrCaptionTooLong), stderrors.Is(err, content.ErrEmptyPost):
		return ValidationError("caption", err.Error())
	case stderrors.Is(err, content.ErrMediaRequired), stderrors.Is(err, media.ErrUnsupportedType):
		return ValidationError("media", err.Error())
	case stderrors.Is(err, feed.ErrInvalidPage):
		return ValidationError("page", err.Error())
	case stderrors.Is(err, feed.ErrInvalidCursor):
		return ValidationError("cursor", err.Error())
	case stderrors.Is(err, store.ErrInvalidInput),
		stderrors.Is(err, content.ErrInvalidKind),
		stderrors.Is(err, interaction.ErrInvalidKind):
		return BadRequest(err.Error())
	}
	return InternalError("internal server error")
}
