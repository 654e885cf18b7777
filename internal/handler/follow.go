package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

var errSelfFollow = errors.New("cannot follow yourself")

// FollowHandler serves follow relationships. The acting user is always the
// follower side of a mutation.
type FollowHandler struct {
	base
	follows FollowStore
}

func NewFollowHandler(follows FollowStore, cfg HandlerConfig) *FollowHandler {
	if follows == nil {
		panic("handler: NewFollowHandler requires a FollowStore")
	}
	return &FollowHandler{base: cfg.base(), follows: follows}
}

func (h *FollowHandler) List(c echo.Context) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()
	out, err := h.follows.List(ctx)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Followers serves GET /users/:id/followers.
func (h *FollowHandler) Followers(c echo.Context) error {
	userID, err := pathID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()
	out, err := h.follows.ListFollowers(ctx, userID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Followings serves GET /users/:id/followings.
func (h *FollowHandler) Followings(c echo.Context) error {
	userID, err := pathID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()
	out, err := h.follows.ListFollowings(ctx, userID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Follow makes the acting user follow user :id.
func (h *FollowHandler) Follow(c echo.Context) error {
	me, err := actingIdentity(c)
	if err != nil {
		return h.respondError(c, err)
	}
	target, err := pathID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	if target == me.ID {
		return h.respondError(c, errSelfFollow)
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()
	f, err := h.follows.Create(ctx, me.ID, target)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, f)
}

// Unfollow ends the acting user's follow of user :id.
func (h *FollowHandler) Unfollow(c echo.Context) error {
	me, err := actingIdentity(c)
	if err != nil {
		return h.respondError(c, err)
	}
	target, err := pathID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()
	f, err := h.follows.DeleteByFollowerAndFollowing(ctx, me.ID, target)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, f)
}
