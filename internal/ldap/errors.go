package ldap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

var (
	// ErrSessionClosed is returned when a session is used after reaching Closed.
	ErrSessionClosed = errors.New("ldap session is closed")

	// ErrSessionBusy is returned when Execute is called while a search is in flight.
	ErrSessionBusy = errors.New("ldap session is already executing")

	// ErrConnectionNotFound is returned by store lookups for an unknown name.
	ErrConnectionNotFound = errors.New("connection not found")
)

// ErrorKind classifies a session failure by the protocol step that failed.
type ErrorKind string

const (
	ErrorKindConfiguration ErrorKind = "configuration"
	ErrorKindConnect       ErrorKind = "connect"
	ErrorKindBind          ErrorKind = "bind"
	ErrorKindSearch        ErrorKind = "search"
)

// ErrorCategory represents different categories of LDAP result codes.
type ErrorCategory string

const (
	ErrorCategoryConnection     ErrorCategory = "connection"
	ErrorCategoryAuthentication ErrorCategory = "authentication"
	ErrorCategoryPermission     ErrorCategory = "permission"
	ErrorCategoryNotFound       ErrorCategory = "not_found"
	ErrorCategoryValidation     ErrorCategory = "validation"
	ErrorCategoryServer         ErrorCategory = "server"
	ErrorCategoryReferral       ErrorCategory = "referral"
	ErrorCategoryUnknown        ErrorCategory = "unknown"
)

// SessionError is the typed failure surfaced by a session or a store lookup.
type SessionError struct {
	Kind      ErrorKind     // Protocol step that failed
	Op        string        // Field or operation involved
	Category  ErrorCategory // Category of the LDAP result code, if any
	LDAPCode  uint16        // LDAP result code (0 when not an LDAP result)
	Message   string        // Human-readable message
	ServerMsg string        // Server-provided diagnostic message
	Cause     error         // Underlying error
}

func (e *SessionError) Error() string {
	var parts []string

	if e.LDAPCode > 0 {
		parts = append(parts, fmt.Sprintf("%s error (code %d)", e.Kind, e.LDAPCode))
	} else {
		parts = append(parts, fmt.Sprintf("%s error", e.Kind))
	}

	if e.Op != "" {
		parts = append(parts, e.Op)
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	if e.ServerMsg != "" && e.ServerMsg != e.Message {
		parts = append(parts, fmt.Sprintf("server: %s", e.ServerMsg))
	}

	return strings.Join(parts, " - ")
}

func (e *SessionError) Unwrap() error {
	return e.Cause
}

// NewConfigurationError creates an error for a value that cannot satisfy its type.
func NewConfigurationError(op, message string, cause error) *SessionError {
	return &SessionError{
		Kind:     ErrorKindConfiguration,
		Op:       op,
		Category: ErrorCategoryValidation,
		Message:  message,
		Cause:    cause,
	}
}

// NewSessionError wraps a transport error for the given protocol step.
func NewSessionError(kind ErrorKind, op string, err error) *SessionError {
	if err == nil {
		return nil
	}

	sessionErr := &SessionError{
		Kind:  kind,
		Op:    op,
		Cause: err,
	}

	var ldapResultErr *ldap.Error
	if errors.As(err, &ldapResultErr) {
		sessionErr.LDAPCode = ldapResultErr.ResultCode
		if ldapResultErr.Err != nil {
			sessionErr.ServerMsg = ldapResultErr.Err.Error()
		}
		sessionErr.Category = categorizeError(ldapResultErr.ResultCode)
		sessionErr.Message = getLDAPCodeMessage(ldapResultErr.ResultCode)
	} else {
		sessionErr.Category = categorizeGenericError(err)
		sessionErr.Message = err.Error()
	}

	return sessionErr
}

// IsKind reports whether err is a SessionError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var sessionErr *SessionError
	return errors.As(err, &sessionErr) && sessionErr.Kind == kind
}

// GetErrorCategory returns the category of an error.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryUnknown
	}

	var sessionErr *SessionError
	if errors.As(err, &sessionErr) && sessionErr.Category != "" {
		return sessionErr.Category
	}

	var ldapResultErr *ldap.Error
	if errors.As(err, &ldapResultErr) {
		return categorizeError(ldapResultErr.ResultCode)
	}

	return categorizeGenericError(err)
}

// categorizeError categorizes an error based on LDAP result code.
func categorizeError(code uint16) ErrorCategory {
	switch code {
	case ldap.LDAPResultInvalidCredentials,
		ldap.LDAPResultInappropriateAuthentication,
		ldap.LDAPResultStrongAuthRequired,
		ldap.LDAPResultConfidentialityRequired,
		ldap.ErrorEmptyPassword:
		return ErrorCategoryAuthentication

	case ldap.LDAPResultInsufficientAccessRights,
		ldap.LDAPResultUnwillingToPerform:
		return ErrorCategoryPermission

	case ldap.LDAPResultNoSuchObject,
		ldap.LDAPResultNoSuchAttribute,
		ldap.LDAPResultUndefinedAttributeType:
		return ErrorCategoryNotFound

	case ldap.LDAPResultInvalidDNSyntax,
		ldap.LDAPResultFilterError,
		ldap.ErrorFilterCompile,
		ldap.LDAPResultProtocolError:
		return ErrorCategoryValidation

	case ldap.LDAPResultReferral,
		ldap.LDAPResultReferralLimitExceeded:
		return ErrorCategoryReferral

	case ldap.LDAPResultServerDown,
		ldap.LDAPResultUnavailable,
		ldap.LDAPResultBusy,
		ldap.LDAPResultTimeLimitExceeded,
		ldap.LDAPResultSizeLimitExceeded,
		ldap.LDAPResultAdminLimitExceeded,
		ldap.LDAPResultTimeout:
		return ErrorCategoryServer

	case ldap.LDAPResultConnectError,
		ldap.ErrorNetwork:
		return ErrorCategoryConnection

	default:
		return ErrorCategoryUnknown
	}
}

// categorizeGenericError categorizes non-LDAP errors.
func categorizeGenericError(err error) ErrorCategory {
	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "tls") {
		return ErrorCategoryConnection
	}

	if strings.Contains(errStr, "credentials") ||
		strings.Contains(errStr, "password") {
		return ErrorCategoryAuthentication
	}

	return ErrorCategoryUnknown
}

// getLDAPCodeMessage returns a human-readable message for an LDAP result code.
func getLDAPCodeMessage(code uint16) string {
	switch code {
	case ldap.LDAPResultSuccess:
		return "Operation completed successfully"
	case ldap.LDAPResultOperationsError:
		return "LDAP operations error"
	case ldap.LDAPResultProtocolError:
		return "LDAP protocol error"
	case ldap.LDAPResultTimeLimitExceeded:
		return "LDAP time limit exceeded"
	case ldap.LDAPResultSizeLimitExceeded:
		return "LDAP size limit exceeded"
	case ldap.LDAPResultAuthMethodNotSupported:
		return "Authentication method not supported"
	case ldap.LDAPResultStrongAuthRequired:
		return "Strong authentication required"
	case ldap.LDAPResultReferral:
		return "LDAP referral"
	case ldap.LDAPResultAdminLimitExceeded:
		return "Administrative limit exceeded"
	case ldap.LDAPResultUnavailableCriticalExtension:
		return "Critical extension unavailable"
	case ldap.LDAPResultConfidentialityRequired:
		return "Confidentiality required"
	case ldap.LDAPResultNoSuchAttribute:
		return "Requested attribute does not exist"
	case ldap.LDAPResultUndefinedAttributeType:
		return "Attribute type is not defined"
	case ldap.LDAPResultNoSuchObject:
		return "Requested object does not exist"
	case ldap.LDAPResultInvalidDNSyntax:
		return "Invalid DN syntax"
	case ldap.LDAPResultInappropriateAuthentication:
		return "Inappropriate authentication method"
	case ldap.LDAPResultInvalidCredentials:
		return "Invalid credentials"
	case ldap.LDAPResultInsufficientAccessRights:
		return "Insufficient access rights"
	case ldap.LDAPResultBusy:
		return "Server is busy"
	case ldap.LDAPResultUnavailable:
		return "Server is unavailable"
	case ldap.LDAPResultUnwillingToPerform:
		return "Server is unwilling to perform the operation"
	case ldap.LDAPResultServerDown:
		return "Server is down"
	case ldap.LDAPResultTimeout:
		return "Operation timed out"
	case ldap.LDAPResultFilterError:
		return "Invalid search filter"
	case ldap.LDAPResultConnectError:
		return "Connection error"
	case ldap.LDAPResultReferralLimitExceeded:
		return "Referral limit exceeded"
	case ldap.ErrorNetwork:
		return "Network error"
	case ldap.ErrorFilterCompile:
		return "Search filter could not be compiled"
	case ldap.ErrorEmptyPassword:
		return "Empty password not allowed by the client"
	default:
		return fmt.Sprintf("LDAP error (code %d)", code)
	}
}
