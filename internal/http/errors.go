package httpx

import (
	"errors"
	"net/http"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/auth"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/billing"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorTable is checked in order with errors.Is.
var errorTable = []errorMapping{
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrNotAMember, http.StatusForbidden, "not_a_member"},
	{domain.ErrInvalidToken, http.StatusNotFound, "invalid_token"},
	{repository.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrAlreadyOwnsTeam, http.StatusConflict, "already_owns_team"},
	{domain.ErrAlreadyMember, http.StatusConflict, "already_member"},
	{domain.ErrDuplicatePendingInvite, http.StatusConflict, "duplicate_pending_invite"},
	{domain.ErrQuotaExceeded, http.StatusConflict, "quota_exceeded"},
	{domain.ErrInvitationNotActionable, http.StatusConflict, "invitation_not_actionable"},
	{domain.ErrCannotRemoveOwner, http.StatusConflict, "cannot_remove_owner"},
	{auth.ErrEmailTaken, http.StatusConflict, "email_taken"},
	{repository.ErrConflict, http.StatusConflict, "conflict"},
	{domain.ErrInvitationExpired, http.StatusGone, "invitation_expired"},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{auth.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{billing.ErrMissingSignature, http.StatusUnauthorized, "missing_signature"},
	{billing.ErrInvalidSignature, http.StatusUnauthorized, "invalid_signature"},
	{domain.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
	{repository.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
	{billing.ErrDisabled, http.StatusServiceUnavailable, "billing_disabled"},
	{domain.ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
}

// statusFor maps a service error to an HTTP status and code.
func statusFor(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// writeServiceError renders err. Unexpected failures are logged and hidden from the caller.
func (r *Router) writeServiceError(w http.ResponseWriter, req *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		r.logger.Error("request failed", "path", req.URL.Path, "error", err)
		writeErrorCode(w, status, code, "internal server error")
		return
	}
	if status == http.StatusServiceUnavailable {
		r.logger.Warn("request unavailable", "path", req.URL.Path, "error", err)
		w.Header().Set("Retry-After", "1")
		writeErrorCode(w, status, code, domain.ErrUnavailable.Error())
		return
	}
	writeErrorCode(w, status, code, err.Error())
}
