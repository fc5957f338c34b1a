// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/VA7DBI/animeflickAPI/auth"
	"github.com/VA7DBI/animeflickAPI/cache"
	"github.com/VA7DBI/animeflickAPI/config"
	"github.com/VA7DBI/animeflickAPI/middleware"
	"github.com/VA7DBI/animeflickAPI/upstream"
	"github.com/gin-gonic/gin"
)

const maxRequestBody = 1 << 20

// APIResponse is the outward JSON envelope for user-scoped routes.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// FavoriteAnime is the card payload tracked per user.
type FavoriteAnime struct {
	AnimeSlug string `json:"anime_slug"`
	Title     string `json:"title"`
	Cover     string `json:"cover"`
	Rating    string `json:"rating"`
	Type      string `json:"type"`
}

// ProgressBody is the per-anime watch status update.
type ProgressBody struct {
	AnimeSlug string `json:"anime_slug"`
	Title     string `json:"title"`
	Cover     string `json:"cover"`
	Rating    string `json:"rating"`
	Type      string `json:"type"`
	Status    string `json:"status"`
}

var progressStatuses = map[string]bool{
	"watching":  true,
	"completed": true,
	"paused":    true,
	"none":      true,
}

func (p ProgressBody) valid() bool {
	return p.AnimeSlug != "" && p.Title != "" && p.Cover != "" &&
		p.Rating != "" && p.Type != "" && progressStatuses[p.Status]
}

// upstreamStatusError carries a definite non-2xx upstream outcome through the
// single-flight group, so waiters report the real status instead of a blind
// 502. Carrying the result does not carry cookie authority: only the filling
// request applies token updates.
type upstreamStatusError struct {
	res auth.Result
}

func (e *upstreamStatusError) Error() string {
	return fmt.Sprintf("upstream returned %d", e.res.Upstream.Status)
}

// userCacheKey scopes a mirror entry to the holder of the token triple. The
// identity cookie is client-forgeable, so cache ownership must come from the
// credentials themselves; token rotation orphans old entries, which just age
// out by TTL.
func userCacheKey(prefix string, sess auth.Session) string {
	sum := sha256.Sum256([]byte(sess.Access + "\x00" + sess.Refresh))
	return prefix + ":" + hex.EncodeToString(sum[:16])
}

// GatewayService owns the upstream clients and the auth orchestration for
// every inbound API route.
type GatewayService struct {
	config  *config.Config
	content *upstream.ContentClient
	users   *upstream.UserClient
	anilist *upstream.AniListClient
	orch    *auth.Client
	policy  auth.CookiePolicy
	store   *cache.RedisStore
	catalog *cache.Loader
}

func NewGatewayService(cfg *config.Config) (*GatewayService, error) {
	users := upstream.NewUserClient(cfg)

	policy := auth.CookiePolicy{
		Secure:         cfg.Auth.SecureCookies,
		AccessTTL:      time.Duration(cfg.Auth.AccessTTL) * time.Second,
		RefreshTTL:     time.Duration(cfg.Auth.RefreshTTL) * time.Second,
		ExpiryFallback: time.Duration(cfg.Auth.ExpiryFallback) * time.Second,
	}

	guard := &auth.Guard{
		Refresher: users,
		Policy:    policy,
		Skew:      time.Duration(cfg.Auth.SkewMillis) * time.Millisecond,
	}

	s := &GatewayService{
		config:  cfg,
		content: upstream.NewContentClient(cfg),
		users:   users,
		anilist: upstream.NewAniListClient(cfg.ContentTimeout()),
		policy:  policy,
		orch: &auth.Client{
			Guard:   guard,
			HTTP:    users.HTTPClient(),
			Timeout: cfg.UserTimeout(),
			API:     "user",
		},
	}

	if cfg.Cache.Enabled {
		store, err := cache.NewRedisStore(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cache: %v", err)
		}
		s.store = store
		s.catalog = cache.NewLoader(store)
	}

	return s, nil
}

func (s *GatewayService) Close() {
	if s.store != nil {
		s.store.Close()
	}
}

func (s *GatewayService) readBody(c *gin.Context) []byte {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBody))
	if err != nil {
		return nil
	}
	return data
}

// callUser runs one orchestrated user-API request and attaches every pending
// cookie mutation before the body is written.
func (s *GatewayService) callUser(c *gin.Context, req auth.Request) (auth.Result, bool) {
	sess := middleware.GetSession(c)
	res, err := s.orch.Do(c.Request.Context(), sess, req)
	auth.ApplyAuthCookies(c.Writer, res, s.policy)
	if err != nil {
		c.JSON(http.StatusBadGateway, APIResponse{Success: false, Message: "upstream unavailable"})
		return auth.Result{}, false
	}
	return res, true
}

// writeUserResult translates a terminal upstream outcome into the outward
// envelope. 401 always surfaces the stable NO_AUTH marker.
func (s *GatewayService) writeUserResult(c *gin.Context, res auth.Result, transform func(json.RawMessage) json.RawMessage) {
	if res.Upstream.Status == http.StatusUnauthorized {
		c.JSON(http.StatusUnauthorized, APIResponse{Success: false, Message: "NO_AUTH"})
		return
	}
	if !res.Upstream.OK() {
		c.JSON(res.Upstream.Status, APIResponse{
			Success: false,
			Message: res.Upstream.Message(fmt.Sprintf("upstream error %d", res.Upstream.Status)),
		})
		return
	}

	data := res.Upstream.JSON()
	if transform != nil {
		data = transform(data)
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// cachedUserCall serves a user-scoped GET through the per-session mirror
// cache when caching is on. A request with no token triple never touches the
// cache or the upstream. Only the goroutine that actually filled the cache
// holds cookie updates; waiters sharing the flight just get the data.
func (s *GatewayService) cachedUserCall(c *gin.Context, prefix string, ttl time.Duration, req auth.Request) {
	sess := middleware.GetSession(c)
	if sess.Access == "" && sess.Refresh == "" {
		c.JSON(http.StatusUnauthorized, APIResponse{Success: false, Message: "NO_AUTH"})
		return
	}

	if s.catalog == nil {
		if res, ok := s.callUser(c, req); ok {
			s.writeUserResult(c, res, nil)
		}
		return
	}

	var filled *auth.Result
	data, err := s.catalog.Load(c.Request.Context(), userCacheKey(prefix, sess), ttl, func(ctx context.Context) ([]byte, error) {
		res, derr := s.orch.Do(ctx, sess, req)
		if derr != nil {
			return nil, derr
		}
		filled = &res
		if !res.Upstream.OK() {
			return nil, &upstreamStatusError{res: res}
		}
		body := res.Upstream.JSON()
		if body == nil {
			body = json.RawMessage("null")
		}
		return body, nil
	})

	if filled != nil {
		auth.ApplyAuthCookies(c.Writer, *filled, s.policy)
	}
	if err != nil {
		var se *upstreamStatusError
		if errors.As(err, &se) {
			s.writeUserResult(c, se.res, nil)
			return
		}
		c.JSON(http.StatusBadGateway, APIResponse{Success: false, Message: "upstream unavailable"})
		return
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: json.RawMessage(data)})
}

// @Summary     Sign in
// @Description Exchange credentials for a cookie-held session
// @Tags        auth
// @Accept      json
// @Produce     json
// @Success     200 {object} APIResponse
// @Failure     401 {object} APIResponse
// @Router      /api/auth/signin [post]
func (s *GatewayService) SigninHandler(c *gin.Context) {
	body := s.readBody(c)
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Message: "Bad body"})
		return
	}

	status, reply, err := s.users.Signin(c.Request.Context(), body)
	if err != nil {
		c.JSON(http.StatusBadGateway, APIResponse{Success: false, Message: "upstream unavailable"})
		return
	}

	if status < 200 || status >= 300 || reply.AccessToken == "" || len(reply.User) == 0 {
		msg := reply.Status
		if msg == "" {
			msg = "Invalid credentials"
		}
		c.JSON(http.StatusUnauthorized, APIResponse{Success: false, Message: msg})
		return
	}

	set := auth.SetOnResponse(c.Writer)
	s.policy.WriteAuth(set, auth.Tokens{
		AccessToken:  reply.AccessToken,
		RefreshToken: reply.RefreshToken,
		ExpiresIn:    reply.ExpiresIn,
	})
	if id := upstream.UIIdentity(reply.User); id != nil {
		s.policy.WriteIdentity(set, *id)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": reply.User})
}

// @Summary     Sign up
// @Tags        auth
// @Accept      json
// @Produce     json
// @Success     200 {object} object
// @Router      /api/auth/signup [post]
func (s *GatewayService) SignupHandler(c *gin.Context) {
	body := s.readBody(c)
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Message: "Bad body"})
		return
	}

	reply := s.users.Signup(c.Request.Context(), body)
	if reply == nil {
		c.JSON(http.StatusInternalServerError, APIResponse{Success: false, Message: "Signup error"})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", reply)
}

// @Summary     Sign out
// @Description Blank every auth cookie; no upstream call is made
// @Tags        auth
// @Produce     json
// @Success     200 {object} object
// @Router      /api/auth/logout [post]
func (s *GatewayService) LogoutHandler(c *gin.Context) {
	set := auth.SetOnResponse(c.Writer)
	s.policy.ClearAuth(set)
	s.policy.ClearIdentity(set)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// @Summary     List favorites
// @Tags        favorites
// @Produce     json
// @Success     200 {object} APIResponse
// @Failure     401 {object} APIResponse
// @Router      /api/favorite [get]
func (s *GatewayService) FavoritesHandler(c *gin.Context) {
	res, ok := s.callUser(c, s.users.FavoritesRequest())
	if !ok {
		return
	}
	s.writeUserResult(c, res, upstream.NormalizeFavorites)
}

// @Summary     Add favorite
// @Tags        favorites
// @Accept      json
// @Produce     json
// @Success     200 {object} APIResponse
// @Failure     400 {object} APIResponse
// @Failure     401 {object} APIResponse
// @Router      /api/favorite [post]
func (s *GatewayService) AddFavoriteHandler(c *gin.Context) {
	var fav FavoriteAnime
	if err := c.ShouldBindJSON(&fav); err != nil ||
		fav.AnimeSlug == "" || fav.Title == "" || fav.Cover == "" || fav.Rating == "" || fav.Type == "" {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Message: "Bad body"})
		return
	}

	body, _ := json.Marshal(fav)
	res, ok := s.callUser(c, s.users.AddFavoriteRequest(body))
	if !ok {
		return
	}
	s.writeUserResult(c, res, nil)
}

// @Summary     Remove favorite
// @Tags        favorites
// @Accept      json
// @Produce     json
// @Success     200 {object} APIResponse
// @Failure     400 {object} APIResponse
// @Failure     401 {object} APIResponse
// @Router      /api/favorite/delete [post]
func (s *GatewayService) DeleteFavoriteHandler(c *gin.Context) {
	var req struct {
		AnimeSlug string `json:"anime_slug"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.AnimeSlug == "" {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Message: "Bad body"})
		return
	}

	body, _ := json.Marshal(req)
	res, ok := s.callUser(c, s.users.DeleteFavoriteRequest(body))
	if !ok {
		return
	}
	s.writeUserResult(c, res, nil)
}

// @Summary     List watched episodes
// @Tags        watched
// @Produce     json
// @Success     200 {object} APIResponse
// @Failure     401 {object} APIResponse
// @Router      /api/watched [get]
func (s *GatewayService) WatchedHandler(c *gin.Context) {
	s.cachedUserCall(c, "watched", 5*time.Minute, s.users.WatchedRequest())
}

// @Summary     Mark episode watched
// @Tags        watched
// @Accept      json
// @Produce     json
// @Success     200 {object} APIResponse
// @Failure     400 {object} APIResponse
// @Failure     401 {object} APIResponse
// @Router      /api/watched [post]
func (s *GatewayService) AddWatchedHandler(c *gin.Context) {
	s.mutateWatched(c, s.users.AddWatchedRequest)
}

// @Summary     Unmark episode watched
// @Tags        watched
// @Accept      json
// @Produce     json
// @Success     200 {object} APIResponse
// @Failure     400 {object} APIResponse
// @Failure     401 {object} APIResponse
// @Router      /api/watched/delete [post]
func (s *GatewayService) DeleteWatchedHandler(c *gin.Context) {
	s.mutateWatched(c, s.users.DeleteWatchedRequest)
}

func (s *GatewayService) mutateWatched(c *gin.Context, build func([]byte) auth.Request) {
	var req struct {
		EpisodeSlug string `json:"episode_slug"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.EpisodeSlug == "" {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Message: "Bad body"})
		return
	}

	body, _ := json.Marshal(req)
	res, ok := s.callUser(c, build(body))
	if !ok {
		return
	}

	if res.Upstream.OK() && s.catalog != nil {
		_ = s.catalog.Invalidate(c.Request.Context(), userCacheKey("watched", middleware.GetSession(c)))
	}
	s.writeUserResult(c, res, nil)
}

// @Summary     Get watch progress
// @Tags        progress
// @Produce     json
// @Param       status query string true "watching|completed|paused|none"
// @Success     200 {object} APIResponse
// @Failure     400 {object} APIResponse
// @Failure     401 {object} APIResponse
// @Router      /api/me/progress [get]
func (s *GatewayService) ProgressHandler(c *gin.Context) {
	status := c.Query("status")
	if !progressStatuses[status] {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Message: "Bad status"})
		return
	}

	s.cachedUserCall(c, "progress:"+status, 30*time.Minute, s.users.ProgressRequest(status))
}

// @Summary     Save watch progress
// @Tags        progress
// @Accept      json
// @Produce     json
// @Success     200 {object} APIResponse
// @Failure     400 {object} APIResponse
// @Failure     401 {object} APIResponse
// @Router      /api/me/progress [post]
func (s *GatewayService) SaveProgressHandler(c *gin.Context) {
	var body ProgressBody
	if err := c.ShouldBindJSON(&body); err != nil || !body.valid() {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Message: "Bad body"})
		return
	}

	raw, _ := json.Marshal(body)
	res, ok := s.callUser(c, s.users.SaveProgressRequest(raw))
	if !ok {
		return
	}

	if res.Upstream.OK() && s.catalog != nil {
		sess := middleware.GetSession(c)
		for status := range progressStatuses {
			_ = s.catalog.Invalidate(c.Request.Context(), userCacheKey("progress:"+status, sess))
		}
	}
	s.writeUserResult(c, res, nil)
}
