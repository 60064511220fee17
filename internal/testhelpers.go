package internal

import (
	"fmt"
	"time"
)

// CreateTestUser creates a user with sample data
func CreateTestUser(email string) *User {
	return &User{
		ID:        "user-" + email,
		Name:      "Asha Patil",
		Email:     email,
		MobileNo:  "9876543210",
		Role:      RoleFarmer,
		Language:  LanguageEnglish,
		CreatedAt: "2024-01-01T00:00:00Z",
	}
}

// CreateTestScheme creates a client-shape scheme
func CreateTestScheme(id, title string) Scheme {
	return Scheme{
		ID:                 id,
		Title:              title,
		Category:           "agriculture",
		Description:        "Support for " + title,
		Eligibility:        "Small farmers\n• Land records",
		Benefits:           "Low-interest credit",
		ApplicationProcess: DefaultApplicationProcess,
		SourceURL:          "https://example.gov/" + id,
		IsNew:              true,
		CreatedAt:          "2024-01-01",
	}
}

// CreateTestTranscript creates an alternating user/ai transcript of n messages
func CreateTestTranscript(n int) []ChatMessage {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	messages := make([]ChatMessage, 0, n)
	for i := 0; i < n; i++ {
		sender := SenderUser
		text := fmt.Sprintf("Which schemes can I apply for? (%d)", i)
		if i%2 == 1 {
			sender = SenderAI
			text = fmt.Sprintf("You may be eligible for **KCC**. (%d)", i)
		}
		messages = append(messages, ChatMessage{
			ID:        fmt.Sprintf("msg-%d", i),
			Sender:    sender,
			Text:      text,
			Timestamp: base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
		})
	}
	return messages
}
