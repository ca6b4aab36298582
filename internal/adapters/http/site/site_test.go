package site

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func get(mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestSiteHandler(t *testing.T) {
	Convey("Given a registered site", t, func() {
		mux := http.NewServeMux()
		Register(context.Background(), mux)

		Convey("Then / serves the standings viewer", func() {
			w := get(mux, "/")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
			body, _ := io.ReadAll(w.Body)
			So(string(body), ShouldContainSubstring, "jansou standings")
			So(string(body), ShouldContainSubstring, "/static/app.js")
		})

		Convey("And the assets are served under /static/", func() {
			w := get(mux, "/static/app.js")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "/standings")

			So(get(mux, "/static/style.css").Code, ShouldEqual, http.StatusOK)
		})

		Convey("And unknown paths are not swallowed by the page", func() {
			So(get(mux, "/some-asset").Code, ShouldEqual, http.StatusNotFound)
			So(get(mux, "/static/missing.js").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("And only GET is served", func() {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestSiteHandlerWithNilMux(t *testing.T) {
	Convey("Given a nil mux", t, func() {
		Convey("Then registering panics", func() {
			So(func() { Register(context.Background(), nil) }, ShouldPanic)
		})
	})
}
