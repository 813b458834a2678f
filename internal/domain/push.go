package domain

// PushMessage is a fully rendered payload addressed to one user's devices.
type PushMessage struct {
	Title       string
	Body        string
	Data        map[string]string
	ImageURL    string
	ClickAction string
}

// PushResult captures the provider-reported outcome for one device token.
// Permanent means the token will never work again and must be deactivated;
// everything else is transient and the token stays active.
type PushResult struct {
	Token     string
	OK        bool
	Permanent bool
	Detail    string
}
