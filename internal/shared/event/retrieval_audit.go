package event

const RetrievalAuditDestination string = "gettoken_retrieval_audit"

type RetrievalAuditMessage struct {
	ID            int64          `json:"id"`
	Action        string         `json:"action"`
	Administrator string         `json:"administrator"`
	Client        string         `json:"client,omitempty"`
	Serial        string         `json:"serial,omitempty"`
	TokenType     string         `json:"token_type,omitempty"`
	User          string         `json:"user,omitempty"`
	Realm         string         `json:"realm,omitempty"`
	Success       bool           `json:"success"`
	Info          map[string]any `json:"info,omitempty"`
	At            int64          `json:"at"`
}
