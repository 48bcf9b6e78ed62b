package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanquest/internal/core"
	"finanquest/internal/middleware/trace"
)

const validUser = `{"id":7,"name":"Ana","email":"ana@example.com","level":2,"experiencePoints":150}`

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	return c, srv
}

func TestNewClientRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "ftp://x", "http://", "::bad"} {
		_, err := NewClient(u)
		assert.Error(t, err, u)
	}
}

func TestLoginSuccess(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(trace.HeaderRequestID))

		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ana@example.com", req.Email)
		assert.Equal(t, "secret", req.Password)

		io.WriteString(w, `{"token":"tok-1","user":`+validUser+`}`)
	})

	resp, err := c.Login(context.Background(), " ana@example.com ", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", resp.Token)
	assert.Equal(t, int64(7), resp.User.ID)
	assert.Equal(t, 150, resp.User.ExperiencePoints)
}

func TestLoginMalformedResponse(t *testing.T) {
	cases := map[string]string{
		"no token":    `{"token":"","user":` + validUser + `}`,
		"no user id":  `{"token":"t","user":{"email":"a@b.c","level":1}}`,
		"bad level":   `{"token":"t","user":{"id":1,"email":"a@b.c","level":0}}`,
		"not json":    `<html>`,
		"empty body":  ``,
		"negative xp": `{"token":"t","user":{"id":1,"email":"a@b.c","level":1,"experiencePoints":-1}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, body)
			})
			_, err := c.Login(context.Background(), "a@b.c", "x")
			var re *RemoteError
			require.ErrorAs(t, err, &re)
			assert.True(t, re.Malformed)
			assert.Equal(t, http.StatusOK, re.StatusCode)
		})
	}
}

func TestRemoteErrorKeepsBody(t *testing.T) {
	body := `{"message":"Credenciais inválidas"}`
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, body)
	})

	_, err := c.Login(context.Background(), "a@b.c", "wrong")
	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusUnauthorized, re.StatusCode)
	assert.Equal(t, body, string(re.Body))
	assert.Equal(t, "Credenciais inválidas", re.Message())
	assert.False(t, re.Malformed)
	assert.True(t, IsUnauthorized(err))
	assert.False(t, IsForbidden(err))
	assert.False(t, IsNetwork(err))
}

func TestFirstFieldErrorKeepsPayloadOrder(t *testing.T) {
	re := &RemoteError{
		StatusCode: http.StatusBadRequest,
		Body:       []byte(`{"message":"Validation failed","errors":{"date":"must not be in the future","amount":["must be positive"],"description":""}}`),
	}

	fields := re.FieldErrors()
	require.Len(t, fields, 2)
	assert.Equal(t, FieldError{Field: "date", Message: "must not be in the future"}, fields[0])
	assert.Equal(t, FieldError{Field: "amount", Message: "must be positive"}, fields[1])

	first, ok := re.FirstFieldError()
	require.True(t, ok)
	assert.Equal(t, "date", first.Field)

	_, ok = (&RemoteError{Body: []byte(`not json`)}).FirstFieldError()
	assert.False(t, ok)
	_, ok = (&RemoteError{Body: []byte(`{"errors":["x"]}`)}).FirstFieldError()
	assert.False(t, ok)
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewClient(url)
	require.NoError(t, err)

	_, err = c.ListTransactions(context.Background())
	var ne *NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "/api/transactions", ne.Path)
	assert.True(t, IsNetwork(err))
	assert.Zero(t, StatusCode(err))

	var re *RemoteError
	assert.False(t, errors.As(err, &re))
}

func TestTimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewClient(srv.URL, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	_, err = c.ListGoals(context.Background())
	assert.True(t, IsNetwork(err), "got %v", err)
}

func TestBearerTokenFromProvider(t *testing.T) {
	var seen atomic.Value
	anon, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.Header.Get("Authorization"))
		io.WriteString(w, `[]`)
	})

	token := "first"
	authed := anon.WithTokens(TokenFunc(func() string { return token }))

	_, err := authed.ListTransactions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer first", seen.Load())

	token = "second"
	_, err = authed.ListTransactions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer second", seen.Load())

	token = ""
	_, err = authed.ListTransactions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", seen.Load())

	// The anonymous client is unaffected by WithTokens.
	token = "third"
	_, err = anon.ListTransactions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", seen.Load())
}

func TestListTransactionsDecodesBothTypeSpellings(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[
			{"id":1,"description":"Salary","amount":500,"type":"RECEITA","date":"2024-01-31"},
			{"id":2,"description":"Market","amount":"120.50","type":"EXPENSE","date":"2024-02-01T00:00:00"}
		]`)
	})

	txs, err := c.ListTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, core.Income, txs[0].Type)
	assert.Equal(t, 31, txs[0].Date.Day())
	assert.Equal(t, core.Expense, txs[1].Type)
	assert.True(t, txs[1].Amount.Equal(core.MustParseMoney("120.50")))
	assert.Equal(t, "2024-02-01", txs[1].Date.String())
}

func TestListTransactionsRejectsUnknownType(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":1,"description":"x","amount":1,"type":"TRANSFER","date":"2024-01-01"}]`)
	})
	_, err := c.ListTransactions(context.Background())
	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.True(t, re.Malformed)
}

func TestListTransactionsRejectsNonPositiveAmount(t *testing.T) {
	for _, amount := range []string{"0", "-25.10"} {
		t.Run(amount, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `[{"id":1,"description":"x","amount":`+amount+`,"type":"EXPENSE","date":"2024-01-01"}]`)
			})
			_, err := c.ListTransactions(context.Background())
			var re *RemoteError
			require.ErrorAs(t, err, &re)
			assert.True(t, re.Malformed)
			assert.ErrorIs(t, err, core.ErrInvalidAmount)
		})
	}
}

type recorded struct {
	method      string
	path        string
	contentType string
	body        string
}

func recordingClient(t *testing.T, status int, reply string) (*Client, *[]recorded) {
	t.Helper()
	var calls []recorded
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		calls = append(calls, recorded{r.Method, r.URL.Path, r.Header.Get("Content-Type"), string(b)})
		w.WriteHeader(status)
		io.WriteString(w, reply)
	})
	return c, &calls
}

func TestTransactionMutations(t *testing.T) {
	ctx := context.Background()
	c, calls := recordingClient(t, http.StatusOK, "")

	in := TransactionInput{
		Description: "Market",
		Amount:      core.MustParseMoney("1.200,50"),
		Type:        core.Expense,
		Date:        core.NewDate(2024, 1, 31),
	}
	require.NoError(t, c.CreateTransaction(ctx, in))
	require.NoError(t, c.UpdateTransaction(ctx, 9, in))
	require.NoError(t, c.DeleteTransaction(ctx, 9))

	require.Len(t, *calls, 3)
	assert.Equal(t, recorded{"POST", "/api/transactions", "application/json",
		`{"description":"Market","amount":1200.5,"type":"EXPENSE","date":"2024-01-31"}`}, (*calls)[0])
	assert.Equal(t, "PUT", (*calls)[1].method)
	assert.Equal(t, "/api/transactions/9", (*calls)[1].path)
	assert.Equal(t, recorded{"DELETE", "/api/transactions/9", "", ""}, (*calls)[2])

	bad := in
	bad.Description = " "
	assert.ErrorIs(t, c.CreateTransaction(ctx, bad), core.ErrEmptyDescription)
	assert.Len(t, *calls, 3, "invalid input must not reach the backend")
}

func TestGoalEndpoints(t *testing.T) {
	ctx := context.Background()
	c, calls := recordingClient(t, http.StatusNoContent, "")

	require.NoError(t, c.CreateGoal(ctx, GoalInput{
		Name:         "Trip",
		TargetAmount: core.MustParseMoney("3000"),
		Deadline:     core.NewDate(2025, 12, 1),
	}))
	require.NoError(t, c.DepositGoal(ctx, 3, core.MustParseMoney("50,25")))
	require.NoError(t, c.DeleteGoal(ctx, 3))

	require.Len(t, *calls, 3)
	assert.Equal(t, `{"name":"Trip","targetAmount":3000,"deadline":"2025-12-01"}`, (*calls)[0].body)
	assert.Equal(t, recorded{"PUT", "/api/goals/3/deposit", "application/json", `{"amount":50.25}`}, (*calls)[1])
	assert.Equal(t, "/api/goals/3", (*calls)[2].path)

	assert.ErrorIs(t, c.DepositGoal(ctx, 3, core.Zero), core.ErrInvalidAmount)
	assert.ErrorIs(t, c.CreateGoal(ctx, GoalInput{Name: "x", TargetAmount: core.Zero, Deadline: core.NewDate(2025, 1, 1)}), core.ErrInvalidAmount)
}

func TestListGoals(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":1,"name":"Trip","currentAmount":150,"targetAmount":100,"deadline":"2025-01-01","status":"COMPLETED"}]`)
	})
	goals, err := c.ListGoals(context.Background())
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, core.GoalCompleted, goals[0].Status)
	assert.True(t, goals[0].CurrentAmount.Equal(core.MoneyFromInt(150)))
}

func TestUpdateUserKeepsLevelAndXP(t *testing.T) {
	var got ProfileUpdate
	var raw string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/7", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		raw = string(b)
		require.NoError(t, json.Unmarshal(b, &got))
		io.WriteString(w, `{"id":7,"name":"Ana Maria","email":"ana.maria@example.com"}`)
	})

	current := core.User{ID: 7, Name: "Ana", Email: "ana@example.com", Level: 3, ExperiencePoints: 420}
	updated, err := c.UpdateUser(context.Background(), current, "Ana Maria", "ana.maria@example.com", "")
	require.NoError(t, err)

	assert.Equal(t, "Ana Maria", updated.Name)
	assert.Equal(t, "ana.maria@example.com", updated.Email)
	assert.Equal(t, 3, updated.Level)
	assert.Equal(t, 420, updated.ExperiencePoints)
	assert.Equal(t, 420, got.ExperiencePoints)
	assert.NotContains(t, raw, "password")

	_, err = c.UpdateUser(context.Background(), current, "Ana", "ana@example.com", "n3w")
	require.NoError(t, err)
	assert.Equal(t, "n3w", got.Password)

	_, err = c.UpdateUser(context.Background(), current, " ", "ana@example.com", "")
	assert.Error(t, err)
}

func TestGetUser(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/7", r.URL.Path)
		io.WriteString(w, validUser)
	})
	u, err := c.GetUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Name)
}

func TestUploadPhotoSendsRawBytes(t *testing.T) {
	c, calls := recordingClient(t, http.StatusOK, "")
	require.NoError(t, c.UploadPhoto(context.Background(), 7, "image/png", strings.NewReader("\x89PNG")))
	require.Len(t, *calls, 1)
	assert.Equal(t, recorded{"PUT", "/users/7/photo", "image/png", "\x89PNG"}, (*calls)[0])
}

func TestGamificationLists(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/challenges":
			io.WriteString(w, `[{"id":"c1","name":"No delivery","type":"SEMANAL","rewardXp":50,"status":"ATIVO"}]`)
		case "/api/achievements":
			io.WriteString(w, `[{"id":"a1","name":"First goal","unlocked":true}]`)
		default:
			http.NotFound(w, r)
		}
	})

	ch, err := c.ListChallenges(context.Background())
	require.NoError(t, err)
	require.Len(t, ch, 1)
	assert.Equal(t, core.Weekly, ch[0].Kind)
	assert.Equal(t, core.ChallengeActive, ch[0].Status)

	ach, err := c.ListAchievements(context.Background())
	require.NoError(t, err)
	require.Len(t, ach, 1)
	assert.True(t, ach[0].Unlocked)
}
