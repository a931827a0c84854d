package admin

import (
	"net/http"

	"jewelpo/internal/auth"
	"jewelpo/internal/response"
	"jewelpo/internal/workflow"
)

// ActionPermission describes one workflow action and whether the caller may perform it.
type ActionPermission struct {
	Action  workflow.Action   `json:"action"`
	From    []workflow.Status `json:"from"`
	To      []workflow.Status `json:"to"`
	Roles   []auth.Role       `json:"roles"`
	Allowed bool              `json:"allowed"`
}

// HandleMyActions lists the transition table with the caller's permission on each row.
func (h *Handler) HandleMyActions(w http.ResponseWriter, r *http.Request) {
	rc, ok := auth.FromContext(r.Context())
	if !ok || rc.UserID == 0 {
		response.Err(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	rules := workflow.Rules()
	out := make([]ActionPermission, 0, len(rules))
	for _, rule := range rules {
		out = append(out, ActionPermission{
			Action:  rule.Action,
			From:    rule.From,
			To:      rule.To,
			Roles:   rule.Roles,
			Allowed: workflow.Authorize(rc, rule.Action) == nil,
		})
	}
	response.JSON(w, out)
}
