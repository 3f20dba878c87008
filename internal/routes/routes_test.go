package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"ride_ledger/internal/controllers"
	"ride_ledger/internal/ledger"
	"ride_ledger/internal/middleware"
	"ride_ledger/internal/models"
	"ride_ledger/internal/notify"
	"ride_ledger/internal/testutil"
)

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
	Kind  string          `json:"kind"`
}

type server struct {
	t      *testing.T
	router *gin.Engine
	events *testutil.Recorder
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	events := &testutil.Recorder{}
	l := ledger.New(testutil.OpenDB(t), ledger.DefaultOptions(), events)
	ctl := &controllers.Controller{
		Ledger: l,
		Reader: ledger.ReadOnly(l),
		Tokens: middleware.NewTokenIssuer("test-secret", time.Hour),
		Hub:    notify.NewHub(),
	}
	return &server{t: t, router: SetupRouter(ctl, io.Discard), events: events}
}

func (s *server) do(method, path, token string, body any) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		s.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, env
}

// must runs the request and fails unless it returns want.
func (s *server) must(want int, method, path, token string, body, out any) {
	s.t.Helper()
	code, env := s.do(method, path, token, body)
	if code != want {
		s.t.Fatalf("%s %s = %d %+v, want %d", method, path, code, env, want)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			s.t.Fatalf("decode data: %v", err)
		}
	}
}

func (s *server) expectKind(wantCode int, wantKind ledger.Kind, method, path, token string, body any) {
	s.t.Helper()
	code, env := s.do(method, path, token, body)
	if code != wantCode || env.Kind != string(wantKind) || env.OK {
		s.t.Fatalf("%s %s = %d kind %q, want %d kind %q", method, path, code, env.Kind, wantCode, wantKind)
	}
}

// signup returns a token and the new identity.
func (s *server) signup(name string, deposit uint64) (string, string) {
	s.t.Helper()
	var auth struct {
		Token   string         `json:"token"`
		Account models.Account `json:"account"`
	}
	s.must(http.StatusCreated, http.MethodPost, "/auth/signup", "", gin.H{
		"name": name, "email": name + "@example.com", "password": "correct horse",
	}, &auth)
	if deposit > 0 {
		s.must(http.StatusOK, http.MethodPost, "/api/wallet/deposit", auth.Token, gin.H{"amount": deposit}, nil)
	}
	return auth.Token, auth.Account.Identity
}

func (s *server) action(want int, token string, id uint64, action string, body any) models.Ride {
	s.t.Helper()
	var ride models.Ride
	s.must(want, http.MethodPost, fmt.Sprintf("/api/rides/%d/actions/%s", id, action), token, body, &ride)
	return ride
}

func TestRideLifecycleOverHTTP(t *testing.T) {
	s := newServer(t)
	riderTok, rider := s.signup("rider", 1000)
	driverTok, driver := s.signup("driver", 0)

	s.must(http.StatusOK, http.MethodPost, "/api/drivers", driverTok, gin.H{
		"name": "Dee", "license_plate": "KDA 123A", "vehicle_type": "sedan", "rate_per_km": 40,
	}, nil)

	var ride models.Ride
	s.must(http.StatusCreated, http.MethodPost, "/api/rides", riderTok, gin.H{
		"pickup": "Westlands", "dest": "CBD", "price": 300,
	}, &ride)
	if ride.ID != 1 || ride.Rider != rider || ride.Status != models.StatusRequested {
		t.Fatalf("requested ride = %+v", ride)
	}

	if r := s.action(http.StatusOK, driverTok, 1, "acceptRide", nil); r.Driver != driver || r.Status != models.StatusAccepted {
		t.Fatalf("accepted ride = %+v", r)
	}
	s.action(http.StatusOK, riderTok, 1, "fundRide", gin.H{"value": 300})

	var escrow struct {
		Escrow uint64 `json:"escrow"`
	}
	s.must(http.StatusOK, http.MethodGet, "/api/rides/1/escrow", riderTok, nil, &escrow)
	if escrow.Escrow != 300 {
		t.Fatalf("escrow = %d, want 300", escrow.Escrow)
	}

	s.action(http.StatusOK, driverTok, 1, "complete", nil)
	if r := s.action(http.StatusOK, riderTok, 1, "confirmArrival", nil); r.Status != models.StatusFinalized {
		t.Fatalf("finalized ride = %+v", r)
	}

	var acct models.Account
	s.must(http.StatusOK, http.MethodGet, "/api/wallet", driverTok, nil, &acct)
	if acct.Balance != 300 {
		t.Fatalf("driver balance = %d, want 300", acct.Balance)
	}
	s.must(http.StatusOK, http.MethodGet, "/api/wallet", riderTok, nil, &acct)
	if acct.Balance != 700 {
		t.Fatalf("rider balance = %d, want 700", acct.Balance)
	}

	var audit ledger.Audit
	s.must(http.StatusOK, http.MethodGet, "/public/audit", "", nil, &audit)
	if audit.Custody != 0 || audit.EscrowTotal != 0 {
		t.Fatalf("audit = %+v", audit)
	}

	want := []string{
		models.EventDriverRegistered, models.EventRideRequested, models.EventRideAccepted,
		models.EventRideFunded, models.EventRideCompleted, models.EventRideFinalized,
	}
	got := s.events.Kinds()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestPublicAndAuthenticatedReadsAgree(t *testing.T) {
	s := newServer(t)
	riderTok, _ := s.signup("rider", 500)
	driverTok, driver := s.signup("driver", 0)
	s.must(http.StatusOK, http.MethodPost, "/api/drivers", driverTok, gin.H{
		"name": "Dee", "license_plate": "KDA 123A", "vehicle_type": "sedan",
	}, nil)
	s.must(http.StatusCreated, http.MethodPost, "/api/rides", riderTok, gin.H{"pickup": "A", "dest": "B", "price": 100}, nil)
	s.must(http.StatusCreated, http.MethodPost, "/api/rides", riderTok, gin.H{"pickup": "C", "dest": "D", "price": 200}, nil)
	s.action(http.StatusOK, driverTok, 2, "accept", nil)

	for _, path := range []string{"/rides", "/rides/2", "/rides/counter"} {
		_, api := s.do(http.MethodGet, "/api"+path, riderTok, nil)
		_, public := s.do(http.MethodGet, "/public"+path, "", nil)
		if !api.OK || string(api.Data) != string(public.Data) {
			t.Fatalf("%s: api %s, public %s", path, api.Data, public.Data)
		}
	}

	var d models.Driver
	s.must(http.StatusOK, http.MethodGet, "/public/drivers/"+driver, "", nil, &d)
	if !d.IsRegistered || d.Name != "Dee" {
		t.Fatalf("public driver = %+v", d)
	}
	s.must(http.StatusOK, http.MethodGet, "/public/drivers/nobody", "", nil, &d)
	if d.IsRegistered {
		t.Fatalf("unknown driver reads as registered: %+v", d)
	}
}

func TestErrorKindsMapToStatus(t *testing.T) {
	s := newServer(t)
	riderTok, _ := s.signup("rider", 100)
	driverTok, _ := s.signup("driver", 0)
	otherTok, _ := s.signup("other", 0)
	s.must(http.StatusOK, http.MethodPost, "/api/drivers", driverTok, gin.H{
		"name": "Dee", "license_plate": "KDA 123A", "vehicle_type": "sedan",
	}, nil)
	s.must(http.StatusCreated, http.MethodPost, "/api/rides", riderTok, gin.H{"pickup": "A", "dest": "B", "price": 300}, nil)

	s.expectKind(http.StatusNotFound, ledger.KindNotFound, http.MethodGet, "/public/rides/9", "", nil)
	s.expectKind(http.StatusNotFound, ledger.KindNotFound, http.MethodGet, "/public/rides/0", "", nil)
	s.expectKind(http.StatusBadRequest, ledger.KindInvalidArgument, http.MethodGet, "/public/rides/abc", "", nil)
	s.expectKind(http.StatusBadRequest, ledger.KindInvalidArgument, http.MethodPost, "/api/rides/1/actions/teleport", driverTok, nil)
	s.expectKind(http.StatusBadRequest, ledger.KindInvalidArgument, http.MethodPost, "/api/rides", riderTok, gin.H{"pickup": "A", "dest": "B", "price": 0})
	s.expectKind(http.StatusBadRequest, ledger.KindInvalidArgument, http.MethodPost, "/api/rides", riderTok, gin.H{"pickup": "A", "dest": "B", "price": uint64(1) << 63})
	s.expectKind(http.StatusBadRequest, ledger.KindInvalidArgument, http.MethodPost, "/api/wallet/deposit", riderTok, gin.H{"amount": uint64(1) << 63})
	s.expectKind(http.StatusBadRequest, ledger.KindInvalidArgument, http.MethodPost, "/api/drivers", driverTok, gin.H{
		"name": "Dee", "license_plate": "KDA 123A", "vehicle_type": "sedan", "payout_address": models.CustodyIdentity,
	})
	s.expectKind(http.StatusForbidden, ledger.KindUnauthorized, http.MethodPost, "/api/rides/1/actions/cancel", otherTok, nil)
	s.expectKind(http.StatusForbidden, ledger.KindUnauthorized, http.MethodPost, "/api/rides/1/actions/accept", riderTok, nil)

	s.action(http.StatusOK, driverTok, 1, "accept", nil)
	s.expectKind(http.StatusConflict, ledger.KindInvalidState, http.MethodPost, "/api/rides/1/actions/accept", driverTok, nil)
	s.expectKind(http.StatusBadRequest, ledger.KindInsufficientValue, http.MethodPost, "/api/rides/1/actions/fund", riderTok, gin.H{"value": 299})
	s.expectKind(http.StatusBadRequest, ledger.KindOverFunded, http.MethodPost, "/api/rides/1/actions/fund", riderTok, gin.H{"value": 301})
	s.expectKind(http.StatusPaymentRequired, ledger.KindInsufficientBalance, http.MethodPost, "/api/rides/1/actions/fund", riderTok, gin.H{"value": 300})
	s.expectKind(http.StatusBadRequest, ledger.KindInvalidArgument, http.MethodPost, "/api/rides/1/actions/complete", driverTok, gin.H{"value": 5})

	if code, _ := s.do(http.MethodGet, "/api/rides", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous /api read = %d, want 401", code)
	}
}

func TestSignupAndLogin(t *testing.T) {
	s := newServer(t)
	_, identity := s.signup("rider", 0)

	if code, _ := s.do(http.MethodPost, "/auth/signup", "", gin.H{
		"name": "again", "email": "RIDER@example.com", "password": "correct horse",
	}); code != http.StatusConflict {
		t.Fatalf("duplicate signup = %d, want 409", code)
	}

	var auth struct {
		Token   string         `json:"token"`
		Account models.Account `json:"account"`
	}
	s.must(http.StatusOK, http.MethodPost, "/auth/login", "", gin.H{"email": "rider@example.com", "password": "correct horse"}, &auth)
	if auth.Account.Identity != identity || auth.Token == "" {
		t.Fatalf("login = %+v", auth)
	}

	if code, _ := s.do(http.MethodPost, "/auth/login", "", gin.H{"email": "rider@example.com", "password": "wrong"}); code != http.StatusUnauthorized {
		t.Fatalf("wrong password = %d, want 401", code)
	}
	if code, _ := s.do(http.MethodPost, "/auth/login", "", gin.H{"email": "nobody@example.com", "password": "x"}); code != http.StatusUnauthorized {
		t.Fatalf("unknown email = %d, want 401", code)
	}
}

func TestHealthIsAnonymous(t *testing.T) {
	s := newServer(t)
	if code, env := s.do(http.MethodGet, "/health", "", nil); code != http.StatusOK || !env.OK {
		t.Fatalf("health = %d %+v", code, env)
	}
}
