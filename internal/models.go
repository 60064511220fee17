package internal

import (
	"fmt"
	"strings"
)

// Language is a UI language preference
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
	LanguageMarathi Language = "mr"
)

// Languages lists the supported languages in display order
func Languages() []Language {
	return []Language{LanguageEnglish, LanguageHindi, LanguageMarathi}
}

// ParseLanguage validates a language code
func ParseLanguage(code string) (Language, error) {
	lang := Language(strings.ToLower(strings.TrimSpace(code)))
	for _, l := range Languages() {
		if l == lang {
			return lang, nil
		}
	}
	return "", fmt.Errorf("%w: %q (supported: en, hi, mr)", ErrUnknownLanguage, code)
}

// DisplayName returns the language's own name
func (l Language) DisplayName() string {
	switch l {
	case LanguageHindi:
		return "हिन्दी"
	case LanguageMarathi:
		return "मराठी"
	default:
		return "English"
	}
}

// Role is the user's occupation category
type Role string

const (
	RoleFarmer       Role = "farmer"
	RoleStudent      Role = "student"
	RoleSelfEmployed Role = "self_employed"
	RoleSalaried     Role = "salaried"
	RoleUnemployed   Role = "unemployed"
	RoleOther        Role = "other"
)

// NormalizeRole maps unknown or empty roles to RoleOther
func NormalizeRole(r Role) Role {
	switch r {
	case RoleFarmer, RoleStudent, RoleSelfEmployed, RoleSalaried, RoleUnemployed, RoleOther:
		return r
	default:
		return RoleOther
	}
}

// User is the authenticated account. It is always replaced as a whole.
type User struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Email     string   `json:"email" yaml:"email"`
	MobileNo  string   `json:"mobileno" yaml:"mobileno"`
	Role      Role     `json:"role" yaml:"role"`
	Language  Language `json:"language" yaml:"language"`
	CreatedAt string   `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// Registration holds the fields sent to /auth/register
type Registration struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	MobileNo string   `json:"mobileno"`
	Role     Role     `json:"role,omitempty"`
	Language Language `json:"language"`
}

// AuthToken is the /auth/login response
type AuthToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// APIMessage is the generic {"message": ...} response
type APIMessage struct {
	Message string `json:"message"`
}

// Scheme is a government assistance program as shown to the user
type Scheme struct {
	ID                 string `json:"id" yaml:"id"`
	Title              string `json:"title" yaml:"title"`
	Category           string `json:"category" yaml:"category"`
	Description        string `json:"description" yaml:"description"`
	Eligibility        string `json:"eligibility" yaml:"eligibility"`
	Benefits           string `json:"benefits" yaml:"benefits"`
	ApplicationProcess string `json:"application_process" yaml:"application_process"`
	SourceURL          string `json:"source_url" yaml:"source_url"`
	IsNew              bool   `json:"is_new" yaml:"is_new"`
	CreatedAt          string `json:"created_at" yaml:"created_at"`
}

// BackendScheme is the scheme shape returned by the API
type BackendScheme struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Category           string   `json:"category"`
	ShortDescription   string   `json:"shortDescription"`
	Eligibility        []string `json:"eligibility"`
	Benefits           []string `json:"benefits"`
	RequiredDocuments  []string `json:"requiredDocuments"`
	EligibleRoles      []string `json:"eligibleRoles"`
	Tags               []string `json:"tags"`
	AgeRange           string   `json:"ageRange,omitempty"`
	IncomeLimit        string   `json:"incomeLimit,omitempty"`
	ApplicationProcess string   `json:"applicationProcess,omitempty"`
	OfficialWebsite    string   `json:"officialWebsite,omitempty"`
	SourceURL          string   `json:"source_url"`
	IsNew              bool     `json:"is_new"`
	CreatedAt          string   `json:"created_at"`
}

const (
	// bulletSeparator joins list fields into a single display string
	bulletSeparator = "\n• "
	// DefaultApplicationProcess is used when the backend has no application steps
	DefaultApplicationProcess = "Please visit the official website for application details."
)

// ToScheme maps the backend shape to the client shape
func (b BackendScheme) ToScheme() Scheme {
	process := b.ApplicationProcess
	if process == "" {
		process = DefaultApplicationProcess
	}
	source := b.SourceURL
	if source == "" {
		source = b.OfficialWebsite
	}
	return Scheme{
		ID:                 b.ID,
		Title:              b.Name,
		Category:           b.Category,
		Description:        b.ShortDescription,
		Eligibility:        strings.Join(b.Eligibility, bulletSeparator),
		Benefits:           strings.Join(b.Benefits, bulletSeparator),
		ApplicationProcess: process,
		SourceURL:          source,
		IsNew:              b.IsNew,
		CreatedAt:          b.CreatedAt,
	}
}

// Sender identifies who wrote a chat message
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ChatMessage is one transcript entry. Never mutated after creation.
type ChatMessage struct {
	ID        string `json:"id" yaml:"id"`
	Sender    Sender `json:"sender" yaml:"sender"`
	Text      string `json:"text" yaml:"text"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
}

// ChatReply is the /ai/chat response
type ChatReply struct {
	Response     string `json:"response"`
	SchemesCount int    `json:"schemes_count"`
	DataSource   string `json:"data_source"`
	Cached       bool   `json:"cached"`
	User         *struct {
		Name string `json:"name"`
		Role string `json:"role"`
	} `json:"user,omitempty"`
}

// Notification is a per-user message, typically about a new scheme
type Notification struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	SchemeID  string `json:"scheme_id,omitempty"`
	CreatedAt string `json:"created_at"`
	IsRead    bool   `json:"is_read"`
}

// Snapshot is the persisted subset of session state. The token lives under its own key.
type Snapshot struct {
	Language        Language `json:"language"`
	User            *User    `json:"user"`
	IsAuthenticated bool     `json:"isAuthenticated"`
}
