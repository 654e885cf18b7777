package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/social-api/internal/model"
)

// CommentHandler serves comments on tweets.
type CommentHandler struct {
	base
	comments CommentStore
}

func NewCommentHandler(comments CommentStore, cfg HandlerConfig) *CommentHandler {
	if comments == nil {
		panic("handler: NewCommentHandler requires a CommentStore")
	}
	return &CommentHandler{base: cfg.base(), comments: comments}
}

type commentReq struct {
	Text string `json:"text" validate:"required,max=500"`
}

func (h *CommentHandler) List(c echo.Context) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()
	out, err := h.comments.List(ctx)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CommentHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()
	cm, err := h.comments.GetByID(ctx, id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, cm)
}

// ListByTweet serves GET /tweets/:id/comments.
func (h *CommentHandler) ListByTweet(c echo.Context) error {
	tweetID, err := pathID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()
	out, err := h.comments.ListByTweet(ctx, tweetID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ListByUser serves GET /users/:id/comments.
func (h *CommentHandler) ListByUser(c echo.Context) error {
	userID, err := pathID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()
	out, err := h.comments.ListByUser(ctx, userID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Create comments on tweet :id as the acting user.
func (h *CommentHandler) Create(c echo.Context) error {
	me, err := actingIdentity(c)
	if err != nil {
		return h.respondError(c, err)
	}
	tweetID, err := pathID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var req commentReq
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	cm := model.Comment{UserID: me.ID, TweetID: tweetID, Text: req.Text}

	ctx, cancel := h.storeCtx(c)
	defer cancel()
	if err := h.comments.Create(ctx, &cm); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, cm)
}

func (h *CommentHandler) Update(c echo.Context) error {
	me, err := actingIdentity(c)
	if err != nil {
		return h.respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var req commentReq
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()
	cm, err := h.comments.UpdateTextByIDAndOwner(ctx, id, me.ID, req.Text)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, cm)
}

func (h *CommentHandler) Delete(c echo.Context) error {
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
	cm, err := h.comments.DeleteByIDAndOwner(ctx, id, me.ID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, cm)
}
