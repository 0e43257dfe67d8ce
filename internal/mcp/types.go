package mcp

// Tool parameter payloads. Arguments arrive as raw JSON from the SDK and
// are decoded into these before dispatch.

type WebsiteIDParams struct {
	ID int64 `json:"id"`
}

type AddWebsiteParams struct {
	URL string `json:"url"`
}

type SetFieldParams struct {
	ID    int64  `json:"id"`
	Value string `json:"value"`
}

type AddStatusParams struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

type SuggestParams struct {
	Prefix string `json:"prefix"`
}

type QuickSearchParams struct {
	Text string `json:"text"`
}

type HistoryParams struct {
	Limit int `json:"limit,omitempty"`
}
