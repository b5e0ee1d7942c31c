package handler

const (
	msgInvalidBody   = "Request body could not be parsed"
	msgResetSent     = "If the email is registered, a password reset link has been sent"
	msgResetComplete = "Password has been reset, please log in"
	msgRegistered    = "Registration successful, check your email to activate your account"
	msgWelcome       = "Congrats! You're in!"
)
