// Package seed loads demo accounts and forms and stores them through the
// regular services, so seeded data obeys the same rules as API traffic.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "vaanifill/internal/errors"
	"vaanifill/internal/model"
	"vaanifill/internal/service"
)

// Account is a demo account.
type Account struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Form is a demo form owned by the account with OwnerEmail.
type Form struct {
	ID         string            `json:"id"`
	Name       string            `json:"formName"`
	OwnerEmail string            `json:"ownerEmail"`
	Fields     []model.FieldSpec `json:"fields"`
}

// Data is the seed document.
type Data struct {
	Accounts []Account `json:"accounts"`
	Forms    []Form    `json:"forms"`
}

// Result counts what a run created and what already existed.
type Result struct {
	AccountsCreated int
	AccountsExisted int
	FormsCreated    int
	FormsExisted    int
}

// Load reads a seed document from a local path or an http(s) URL.
func Load(ctx context.Context, source string) (*Data, error) {
	var (
		body []byte
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		body, err = fetch(ctx, source)
	} else {
		body, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("read seed source: %w", err)
	}

	var data Data
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return &data, nil
}

func fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source returned status code: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Run registers every account and creates every form. Accounts whose email is
// taken and forms whose id is taken are counted as existing and left as is.
func Run(ctx context.Context, authService service.AuthService, formService service.FormService, data *Data, log logrus.FieldLogger) (Result, error) {
	var res Result

	for _, a := range data.Accounts {
		_, err := authService.Register(ctx, a.Username, a.Email, a.Password)
		switch {
		case err == nil:
			res.AccountsCreated++
		case errors.Is(err, apperrors.ErrEmailTaken):
			res.AccountsExisted++
		default:
			return res, fmt.Errorf("register %s: %w", a.Email, err)
		}
	}

	owners := make(map[string]*model.Account)
	for _, a := range data.Accounts {
		owner, err := authService.Authenticate(ctx, a.Email, a.Password)
		if err != nil {
			// an existing account with a different password cannot own seeded forms
			log.WithField("email", a.Email).WithError(err).Warn("skipping seed account")
			continue
		}
		owners[service.NormalizeEmail(a.Email)] = owner
	}

	for _, f := range data.Forms {
		owner, ok := owners[service.NormalizeEmail(f.OwnerEmail)]
		if !ok {
			return res, fmt.Errorf("form %q: unknown owner %s", f.Name, f.OwnerEmail)
		}

		_, err := formService.Create(ctx, owner.ID, service.CreateFormInput{ID: f.ID, Name: f.Name, Fields: f.Fields})
		switch {
		case err == nil:
			res.FormsCreated++
		case errors.Is(err, apperrors.ErrFormIDTaken):
			res.FormsExisted++
		default:
			return res, fmt.Errorf("create form %q: %w", f.Name, err)
		}
	}

	return res, nil
}
