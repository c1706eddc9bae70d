package mailtm

import "time"

// Domain is an address domain offered by the provider.
type Domain struct {
	ID        string `json:"id"`
	Domain    string `json:"domain"`
	IsActive  bool   `json:"isActive"`
	IsPrivate bool   `json:"isPrivate"`
}

// Account is a mailbox registered with the provider.
type Account struct {
	ID        string    `json:"id"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
}

// Token is the bearer credential returned by POST /token.
type Token struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// Addressee is a sender or recipient of a message.
type Addressee struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// MessageSummary is one entry of the inbox listing.
type MessageSummary struct {
	ID        string    `json:"id"`
	From      Addressee `json:"from"`
	Subject   string    `json:"subject"`
	Intro     string    `json:"intro"`
	Seen      bool      `json:"seen"`
	CreatedAt string    `json:"createdAt"`
}

// MessagePage is the first page of an inbox together with the provider's total.
type MessagePage struct {
	Messages []MessageSummary
	Total    int
}

// Message is the full message returned by GET /messages/{id}.
type Message struct {
	ID        string      `json:"id"`
	From      Addressee   `json:"from"`
	To        []Addressee `json:"to"`
	Subject   string      `json:"subject"`
	Text      string      `json:"text"`
	HTML      []string    `json:"html"`
	Seen      bool        `json:"seen"`
	CreatedAt string      `json:"createdAt"`
}

type collection[T any] struct {
	Members    []T `json:"hydra:member"`
	TotalItems int `json:"hydra:totalItems"`
}

type credentialsRequest struct {
	Address  string `json:"address"`
	Password string `json:"password"`
}
