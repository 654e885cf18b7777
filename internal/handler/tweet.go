package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/social-api/internal/model"
)

// TweetHandler serves tweets. Mutations act only on tweets the acting user
// owns; anything else is reported as not found.
type TweetHandler struct {
	base
	tweets TweetStore
}

func NewTweetHandler(tweets TweetStore, cfg HandlerConfig) *TweetHandler {
	if tweets == nil {
		panic("handler: NewTweetHandler requires a TweetStore")
	}
	return &TweetHandler{base: cfg.base(), tweets: tweets}
}

type createTweetReq struct {
	Text  string  `json:"text" validate:"required,max=500"`
	Photo *string `json:"photo" validate:"omitnil,url"`
}

type updateTweetReq struct {
	Text  *string `json:"text" validate:"omitnil,min=1,max=500"`
	Photo *string `json:"photo" validate:"omitnil,url"`
}

func (h *TweetHandler) List(c echo.Context) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()
	tweets, err := h.tweets.List(ctx)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, tweets)
}

func (h *TweetHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()
	t, err := h.tweets.GetByID(ctx, id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// ListByUser serves GET /users/:id/tweets.
func (h *TweetHandler) ListByUser(c echo.Context) error {
	userID, err := pathID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()
	tweets, err := h.tweets.ListByUser(ctx, userID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, tweets)
}

// Create posts a tweet owned by the acting user.
func (h *TweetHandler) Create(c echo.Context) error {
	me, err := actingIdentity(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var req createTweetReq
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	t := model.Tweet{UserID: me.ID, Text: req.Text, Photo: req.Photo}

	ctx, cancel := h.storeCtx(c)
	defer cancel()
	if err := h.tweets.Create(ctx, &t); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *TweetHandler) Update(c echo.Context) error {
	me, err := actingIdentity(c)
	if err != nil {
		return h.respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var req updateTweetReq
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	patch := model.TweetPatch{Text: req.Text, Photo: req.Photo}
	if patch.Empty() {
		return h.respondError(c, errEmptyPatch)
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()
	t, err := h.tweets.UpdateByIDAndOwner(ctx, id, me.ID, patch)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *TweetHandler) Delete(c echo.Context) error {
	me, err := actingIdentity(c)
	if err != nil {
		return h.respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()
	t, err := h.tweets.DeleteByIDAndOwner(ctx, id, me.ID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}
