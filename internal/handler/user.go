package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/social-api/internal/model"
)

// UserHandler serves profile reads and self-service profile changes.
type UserHandler struct {
	base
	users UserStore
}

func NewUserHandler(users UserStore, cfg HandlerConfig) *UserHandler {
	if users == nil {
		panic("handler: NewUserHandler requires a UserStore")
	}
	return &UserHandler{base: cfg.base(), users: users}
}

type updateUserReq struct {
	Username  *string `json:"username" validate:"omitnil,max=30"`
	FirstName *string `json:"first_name" validate:"omitnil,max=15"`
	LastName  *string `json:"last_name" validate:"omitnil,max=15"`
	Age       *int    `json:"age" validate:"omitnil,gte=0,lte=999"`
	Email     *string `json:"email" validate:"omitnil,email,max=60"`
}

func (r updateUserReq) patch() model.UserPatch {
	return model.UserPatch{
		Username:  r.Username,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Age:       r.Age,
		Email:     r.Email,
	}
}

// List returns every live user without password digests.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()
	users, err := h.users.List(ctx)
	if err != nil {
		return h.respondError(c, err)
	}
	out := make([]userResp, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResp(u))
	}
	return c.JSON(http.StatusOK, out)
}

// Update applies a partial profile update to the acting user.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := actingIdentity(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var req updateUserReq
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	patch := req.patch()
	if patch.Empty() {
		return h.respondError(c, errEmptyPatch)
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()
	u, err := h.users.UpdateProfile(ctx, id.ID, patch)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// Delete soft deletes the acting user. Outstanding tokens stop working on
// the next request because the middleware no longer finds the user.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := actingIdentity(c)
	if err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()
	u, err := h.users.SoftDelete(ctx, id.ID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}
