package model

// Repository is one entry of the GitHub "list repositories for a user" response.
// Only the fields the portfolio interprets are decoded; everything else in the
// payload is ignored. Values are never mutated after decode.
type Repository struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Topics      []string `json:"topics"`
	HasPages    bool     `json:"has_pages"`
	Fork        bool     `json:"fork"`
}

// DescriptionOr returns the description, or def when it is null or empty.
func (r Repository) DescriptionOr(def string) string {
	if r.Description == nil || *r.Description == "" {
		return def
	}
	return *r.Description
}
