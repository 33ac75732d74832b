package domain

// VerdictCode identifies which validation rule produced a verdict.
type VerdictCode string

const (
	VerdictOK                  VerdictCode = "ok"
	VerdictEmpty               VerdictCode = "empty"
	VerdictSelectFrom          VerdictCode = "select_from"
	VerdictSelectTo            VerdictCode = "select_to"
	VerdictSameToken           VerdictCode = "same_token"
	VerdictInvalidFormat       VerdictCode = "invalid_format"
	VerdictNonPositive         VerdictCode = "non_positive"
	VerdictInsufficientBalance VerdictCode = "insufficient_balance"
)

// Verdict is the outcome of validating the swap form.
// At most one of Error and Warning is set.
type Verdict struct {
	IsValid bool        `json:"is_valid"`
	Code    VerdictCode `json:"code"`
	Error   string      `json:"error,omitempty"`
	Warning string      `json:"warning,omitempty"`
}

// Message returns whichever message is set, error first.
func (v Verdict) Message() string {
	if v.Error != "" {
		return v.Error
	}
	return v.Warning
}
