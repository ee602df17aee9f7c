package ports

import "github.com/david0154/David-BCI/internal/domain"

// Model is an opaque pretrained decoder bound to a session by the decoder
// adapter. Fitting/training is entirely external to the online core; the
// pipeline never mutates a model.
//
// Channels declares the channel count the model was fit on and is validated
// against the session configuration at Start. TimePoints declares the
// expected samples-per-channel after preprocessing; zero means the model
// accepts any length.
type Model interface {
	Predict(w *domain.Window) (*domain.Decision, error)
	Channels() int
	TimePoints() int
}
