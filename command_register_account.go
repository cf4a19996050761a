package forgeauth

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

type RegisterAccountMessage struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

// RegisterAccountHandler drives the full registration flow, forge
// provisioning included, from a message.
type RegisterAccountHandler struct {
	auther *Auther
}

func NewRegisterAccountHandler(auther *Auther) *RegisterAccountHandler {
	return &RegisterAccountHandler{auther: auther}
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) error {
	username := getUsername(event.Username, event.Email)

	account, err := h.auther.Register(ctx, event.Password, username, event.Email)
	if err != nil {
		return err
	}

	if event.Phone == "" {
		return nil
	}

	phone, err := NormalizePhone(event.Phone, "US")
	if err != nil {
		// registration already committed; a bad phone is not worth failing over
		h.auther.logger.Warn("discarding invalid phone number", "account", account.ID.String())
		return nil
	}

	account.Phone = phone
	if _, err := h.auther.repo.Accounts().Upsert(ctx, account); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store phone number")
	}

	return nil
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
