package model

import "time"

// Message is an inbound anonymous message in an account's inbox
type Message struct {
	Content    string    `json:"content" bson:"content"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	IsFromUser bool      `json:"is_from_user" bson:"is_from_user"`
	IsAI       bool      `json:"is_ai" bson:"is_ai"`
}
