package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/social-api/internal/handler"
)

// Deps collects the handlers and middleware the route table refers to.
type Deps struct {
	Auth     *handler.AuthHandler
	Users    *handler.UserHandler
	Tweets   *handler.TweetHandler
	Comments *handler.CommentHandler
	Follows  *handler.FollowHandler
	DB       handler.Pinger

	// Session guards every non-public route unless the route names its own
	// auth middleware.
	Session echo.MiddlewareFunc
	// Reset accepts password_reset tokens only.
	Reset echo.MiddlewareFunc
	// Cache wraps public GET routes. Optional.
	Cache echo.MiddlewareFunc
	// Invalidate wraps every route that writes, after auth. Optional; set it
	// whenever Cache is set.
	Invalidate echo.MiddlewareFunc
}

// route is one entry of the table. Routes are protected unless public is
// set; auth overrides the session middleware for special token purposes.
type route struct {
	method string
	path   string
	h      echo.HandlerFunc
	public bool
	auth   echo.MiddlewareFunc
}

// Register adds every route of the table to e. A route that is not marked
// public always gets an auth middleware, so forgetting to protect a new
// endpoint is not possible.
func Register(e *echo.Echo, d Deps) {
	if d.Session == nil || d.Reset == nil {
		panic("router: Session and Reset middleware are required")
	}
	for _, r := range d.routes() {
		var mws []echo.MiddlewareFunc
		switch {
		case !r.public && r.auth != nil:
			mws = append(mws, r.auth)
		case !r.public:
			mws = append(mws, d.Session)
		case r.method == http.MethodGet && d.Cache != nil:
			mws = append(mws, d.Cache)
		}
		if r.method != http.MethodGet && d.Invalidate != nil {
			mws = append(mws, d.Invalidate)
		}
		e.Add(r.method, r.path, r.h, mws...)
	}
}

func (d Deps) routes() []route {
	return []route{
		{method: http.MethodGet, path: "/healthz", h: handler.Health(d.DB), public: true},

		// accounts
		{method: http.MethodGet, path: "/users", h: d.Users.List, public: true},
		{method: http.MethodPost, path: "/users/signup", h: d.Auth.Signup, public: true},
		{method: http.MethodPost, path: "/users/login", h: d.Auth.Login, public: true},
		{method: http.MethodPost, path: "/users/forgetPassword", h: d.Auth.ForgetPassword, public: true},
		{method: http.MethodPost, path: "/users/forget/reset", h: d.Auth.ForgetReset, auth: d.Reset},
		{method: http.MethodPost, path: "/users/resetPassword", h: d.Auth.ChangePassword},
		{method: http.MethodGet, path: "/users/me", h: d.Auth.Me},
		{method: http.MethodPut, path: "/users", h: d.Users.Update},
		{method: http.MethodDelete, path: "/users", h: d.Users.Delete},

		// tweets
		{method: http.MethodGet, path: "/tweets", h: d.Tweets.List, public: true},
		{method: http.MethodGet, path: "/tweets/:id", h: d.Tweets.Get, public: true},
		{method: http.MethodGet, path: "/users/:id/tweets", h: d.Tweets.ListByUser, public: true},
		{method: http.MethodPost, path: "/tweets", h: d.Tweets.Create},
		{method: http.MethodPut, path: "/tweets/:id", h: d.Tweets.Update},
		{method: http.MethodDelete, path: "/tweets/:id", h: d.Tweets.Delete},

		// comments
		{method: http.MethodGet, path: "/comments", h: d.Comments.List, public: true},
		{method: http.MethodGet, path: "/comments/:id", h: d.Comments.Get, public: true},
		{method: http.MethodGet, path: "/tweets/:id/comments", h: d.Comments.ListByTweet, public: true},
		{method: http.MethodGet, path: "/users/:id/comments", h: d.Comments.ListByUser, public: true},
		{method: http.MethodPost, path: "/tweets/:id/comments", h: d.Comments.Create},
		{method: http.MethodPut, path: "/comments/:id", h: d.Comments.Update},
		{method: http.MethodDelete, path: "/comments/:id", h: d.Comments.Delete},

		// follows
		{method: http.MethodGet, path: "/followers", h: d.Follows.List, public: true},
		{method: http.MethodGet, path: "/users/:id/followers", h: d.Follows.Followers, public: true},
		{method: http.MethodGet, path: "/users/:id/followings", h: d.Follows.Followings, public: true},
		{method: http.MethodPost, path: "/users/:id/followers", h: d.Follows.Follow},
		{method: http.MethodDelete, path: "/followers/:id", h: d.Follows.Unfollow},
	}
}
