package server

import "maizedigest/app/service/composer"

type chatRequest struct {
	Query string `json:"query" validate:"required"`
}

type chatResponse struct {
	OK              bool     `json:"ok"`
	Response        string   `json:"response,omitempty"`
	Sources         []string `json:"sources,omitempty"`
	HasDigestOption bool     `json:"hasDigestOption,omitempty"`
	Error           string   `json:"error,omitempty"`
}

type digestResponse struct {
	OK      bool             `json:"ok,omitempty"`
	Result  *composer.Digest `json:"result,omitempty"`
	Sources []string         `json:"sources,omitempty"`
	Error   string           `json:"error,omitempty"`
	Raw     string           `json:"raw,omitempty"`
}

type exportRequest struct {
	Executive string               `json:"executive"`
	Opening   string               `json:"opening"`
	Main      composer.MainContent `json:"main"`
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
	State     string `json:"state"`
	Messages  any    `json:"messages"`
}

type messageRequest struct {
	Text string `json:"text" validate:"required"`
}

type turnResponse struct {
	State    string `json:"state"`
	Messages any    `json:"messages"`
	// docx payload, base64 in JSON, present only after an export turn
	Document []byte `json:"document,omitempty"`
}
