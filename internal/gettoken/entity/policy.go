package entity

import (
	"time"

	"github.com/shandysiswandi/gettoken/internal/pkg/valueobject"
)

const (
	PolicyScopeAdmin    = "admin"
	PolicyScopeGetToken = "gettoken"

	PolicyActionGetOTP   = "getotp"
	PolicyActionMaxCount = "max_count"
)

// PolicyParams is what a policy decision is evaluated against.
type PolicyParams struct {
	Subject   string
	Serial    string
	TokenType TokenType
	Realm     string
	User      string
}

// PolicyDecision is the provider's answer. Limit is meaningful for quota actions only.
type PolicyDecision struct {
	Allowed bool
	Limit   int
	Reason  string
}

const (
	AuditActionGetOTP      = "gettoken/getotp"
	AuditActionGetMultiOTP = "gettoken/getmultiotp"
)

// AuditRecord describes one retrieval call.
type AuditRecord struct {
	ID            int64
	Action        string
	Administrator string
	Client        string
	Serial        string
	TokenType     string
	User          string
	Realm         string
	Success       bool
	Info          valueobject.JSONMap
	At            time.Time
}
