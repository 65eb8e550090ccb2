package service_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"parlay.app/coordinator/common/id"
	"parlay.app/coordinator/internal/esign"
	"parlay.app/coordinator/internal/model"
	"parlay.app/coordinator/internal/service"
)

var _ = Describe("ConnectionManager", func() {
	var (
		connections *mockConnectionStore
		ctx         context.Context
		tokenServer *httptest.Server
		tokenStatus int
		tokenBody   string
	)

	newManager := func() *service.ConnectionManager {
		oauth := esign.NewOAuthClient(tokenServer.URL, "integration-key", "secret")
		return service.NewConnectionManager(connections, oauth)
	}

	BeforeEach(func() {
		Expect(id.Init(1)).To(Succeed())
		ctx = context.Background()
		connections = &mockConnectionStore{}
		tokenStatus = http.StatusOK
		tokenBody = `{"access_token":"fresh-token","refresh_token":"fresh-refresh","token_type":"Bearer","expires_in":3600}`
		tokenServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/oauth/token"))
			user, pass, ok := r.BasicAuth()
			Expect(ok).To(BeTrue())
			Expect(user).To(Equal("integration-key"))
			Expect(pass).To(Equal("secret"))
			w.WriteHeader(tokenStatus)
			w.Write([]byte(tokenBody))
		}))
	})

	AfterEach(func() {
		tokenServer.Close()
	})

	It("returns the connection untouched while the token is fresh", func() {
		connections.getActiveFn = func(_ context.Context) (*model.ProviderConnection, error) {
			return &model.ProviderConnection{ID: 1, AccessToken: "live", ExpiresAt: time.Now().Add(time.Hour)}, nil
		}

		conn, err := newManager().GetConnection(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(conn.AccessToken).To(Equal("live"))
	})

	It("refreshes an expiring token and persists the new pair", func() {
		connections.getActiveFn = func(_ context.Context) (*model.ProviderConnection, error) {
			return &model.ProviderConnection{
				ID:           1,
				AccessToken:  "stale",
				RefreshToken: "old-refresh",
				ExpiresAt:    time.Now().Add(30 * time.Second),
			}, nil
		}

		var savedAccess, savedRefresh string
		var savedExpiry time.Time
		connections.updateTokensFn = func(_ context.Context, _ int64, accessToken, refreshToken string, expiresAt time.Time) error {
			savedAccess = accessToken
			savedRefresh = refreshToken
			savedExpiry = expiresAt
			return nil
		}

		conn, err := newManager().GetConnection(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(conn.AccessToken).To(Equal("fresh-token"))
		Expect(savedAccess).To(Equal("fresh-token"))
		Expect(savedRefresh).To(Equal("fresh-refresh"))
		Expect(savedExpiry).To(BeTemporally("~", time.Now().Add(time.Hour), time.Minute))
	})

	It("keeps the old refresh token when the provider omits one", func() {
		tokenBody = `{"access_token":"fresh-token","token_type":"Bearer","expires_in":3600}`
		connections.getActiveFn = func(_ context.Context) (*model.ProviderConnection, error) {
			return &model.ProviderConnection{
				ID:           1,
				AccessToken:  "stale",
				RefreshToken: "old-refresh",
				ExpiresAt:    time.Now().Add(-time.Minute),
			}, nil
		}

		var savedRefresh string
		connections.updateTokensFn = func(_ context.Context, _ int64, _, refreshToken string, _ time.Time) error {
			savedRefresh = refreshToken
			return nil
		}

		_, err := newManager().GetConnection(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(savedRefresh).To(Equal("old-refresh"))
	})

	It("reports expired credentials when no connection exists", func() {
		_, err := newManager().GetConnection(ctx)
		Expect(service.IsKind(err, service.KindExpiredCredentials)).To(BeTrue())
	})

	It("reports expired credentials when there is no refresh token", func() {
		connections.getActiveFn = func(_ context.Context) (*model.ProviderConnection, error) {
			return &model.ProviderConnection{ID: 1, AccessToken: "stale", ExpiresAt: time.Now().Add(-time.Minute)}, nil
		}

		_, err := newManager().GetConnection(ctx)

		Expect(service.IsKind(err, service.KindExpiredCredentials)).To(BeTrue())
	})

	Describe("CompleteAuthorization", func() {
		var authServer *httptest.Server

		BeforeEach(func() {
			authServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/oauth/token":
					Expect(r.FormValue("grant_type")).To(Equal("authorization_code"))
					Expect(r.FormValue("code")).To(Equal("consent-code"))
					w.Write([]byte(`{"access_token":"initial-token","refresh_token":"initial-refresh","expires_in":3600}`))
				case "/oauth/userinfo":
					Expect(r.Header.Get("Authorization")).To(Equal("Bearer initial-token"))
					w.Write([]byte(`{"sub":"user-1","accounts":[
						{"account_id":"acct-other","is_default":false,"base_uri":"https://eu.esign.example.com"},
						{"account_id":"acct-main","is_default":true,"base_uri":"https://na.esign.example.com"}
					]}`))
				default:
					w.WriteHeader(http.StatusNotFound)
				}
			}))
		})

		AfterEach(func() {
			authServer.Close()
		})

		newAuthManager := func() *service.ConnectionManager {
			oauth := esign.NewOAuthClient(authServer.URL, "integration-key", "secret")
			return service.NewConnectionManager(connections, oauth)
		}

		It("stores a connection scoped to the default account", func() {
			var created *model.ProviderConnection
			connections.createFn = func(_ context.Context, conn *model.ProviderConnection) error {
				created = conn
				return nil
			}

			conn, err := newAuthManager().CompleteAuthorization(ctx, "consent-code")

			Expect(err).NotTo(HaveOccurred())
			Expect(conn.AccountID).To(Equal("acct-main"))
			Expect(conn.BaseURI).To(Equal("https://na.esign.example.com"))
			Expect(created).NotTo(BeNil())
			Expect(created.AccessToken).To(Equal("initial-token"))
			Expect(created.RefreshToken).To(Equal("initial-refresh"))
			Expect(created.ExpiresAt).To(BeTemporally("~", time.Now().Add(time.Hour), time.Minute))
		})

		It("rejects an empty authorization code", func() {
			_, err := newAuthManager().CompleteAuthorization(ctx, "")
			Expect(service.IsKind(err, service.KindValidation)).To(BeTrue())
		})
	})

	It("reports expired credentials when the provider rejects the refresh token", func() {
		tokenStatus = http.StatusBadRequest
		tokenBody = `{"error":"invalid_grant"}`
		connections.getActiveFn = func(_ context.Context) (*model.ProviderConnection, error) {
			return &model.ProviderConnection{
				ID:           1,
				AccessToken:  "stale",
				RefreshToken: "revoked",
				ExpiresAt:    time.Now().Add(-time.Minute),
			}, nil
		}

		_, err := newManager().GetConnection(ctx)

		Expect(service.IsKind(err, service.KindExpiredCredentials)).To(BeTrue())
	})
})
