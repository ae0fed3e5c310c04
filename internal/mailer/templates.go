package mailer

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Template names an email layout. Values match the action types they announce.
type Template string

const (
	TemplateRegister      Template = "REGISTER"
	TemplateResetPassword Template = "RESET_PASSWORD"
)

// Valid reports whether a layout exists for t.
func (t Template) Valid() bool {
	_, ok := templateFiles[t]
	return ok
}

var templateFiles = map[Template]string{
	TemplateRegister:      "register",
	TemplateResetPassword: "reset_password",
}

// TemplateData is the payload every action email is rendered with.
type TemplateData struct {
	ActionID string `json:"actionId"`
	UIURL    string `json:"uiUrl"`
}

var supportedLanguages = []language.Tag{
	language.English,
	language.Ukrainian,
}

func init() {
	en := language.English
	message.SetString(en, "mail.register.subject", "Complete your registration")
	message.SetString(en, "mail.register.heading", "Welcome!")
	message.SetString(en, "mail.register.intro", "Your account was created for %s. Choose a password to activate it.")
	message.SetString(en, "mail.register.cta", "Set password")
	message.SetString(en, "mail.reset_password.subject", "Reset your password")
	message.SetString(en, "mail.reset_password.heading", "Password reset")
	message.SetString(en, "mail.reset_password.intro", "A password reset was requested for %s.")
	message.SetString(en, "mail.reset_password.cta", "Choose a new password")
	message.SetString(en, "mail.reset_password.ignore", "If you did not request this, you can ignore this email.")
	message.SetString(en, "mail.footer", "This link can be used only once.")

	uk := language.Ukrainian
	message.SetString(uk, "mail.register.subject", "Завершіть реєстрацію")
	message.SetString(uk, "mail.register.heading", "Вітаємо!")
	message.SetString(uk, "mail.register.intro", "Обліковий запис для %s створено. Оберіть пароль, щоб активувати його.")
	message.SetString(uk, "mail.register.cta", "Встановити пароль")
	message.SetString(uk, "mail.reset_password.subject", "Скидання пароля")
	message.SetString(uk, "mail.reset_password.heading", "Скидання пароля")
	message.SetString(uk, "mail.reset_password.intro", "Для %s надійшов запит на скидання пароля.")
	message.SetString(uk, "mail.reset_password.cta", "Обрати новий пароль")
	message.SetString(uk, "mail.reset_password.ignore", "Якщо ви не надсилали запит, просто проігноруйте цей лист.")
	message.SetString(uk, "mail.footer", "Посилання можна використати лише один раз.")
}

// MatchLanguage picks the closest supported language for a BCP 47 tag.
func MatchLanguage(raw string) language.Tag {
	tag, err := language.Parse(raw)
	if err != nil {
		return language.English
	}
	_, idx, _ := language.NewMatcher(supportedLanguages).Match(tag)
	return supportedLanguages[idx]
}
