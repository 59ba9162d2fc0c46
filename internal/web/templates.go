// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

package web

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/studentsstage/stagectl/internal/identity"
	"github.com/studentsstage/stagectl/internal/platform/ctxutil"
	"github.com/studentsstage/stagectl/internal/session"
)

// pageData is the model every template receives.
type pageData struct {
	Title    string
	Snapshot session.Snapshot
	Users    []userRow
	Theme    string
}

// userRow is a flattened profile for the user management table.
type userRow struct {
	ID       string
	Username string
	Role     identity.Role
}

// RoleLabel renders the role for display. An unresolved role is reported as
// not detected, even though routing treats the same session as a student.
func (data pageData) RoleLabel() string {
	if !data.Snapshot.Role.Resolved() {
		return "Role not detected"
	}
	return string(data.Snapshot.Role)
}

func (handler *Handler) render(writer http.ResponseWriter, request *http.Request, page string, data pageData) {
	data.Theme = handler.prefs.Theme()

	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(writer, page, data); err != nil {
		ctxutil.GetLogger(request.Context()).Error("template render failed",
			slog.String("page", page),
			slog.Any("error", err),
		)
	}
}

var pages = template.Must(template.New("pages").Parse(`
{{define "layout_top"}}<!DOCTYPE html>
<html lang="en" data-theme="{{.Theme}}">
<head><meta charset="utf-8"><title>{{.Title}} · Student's Stage</title></head>
<body>
<nav>
  <a href="/">Student's Stage</a>
  {{if .Snapshot.Authenticated}}
    <span>{{.Snapshot.Username}}</span>
    <form method="post" action="/logout"><button type="submit">Sign out</button></form>
  {{else}}
    <a href="/login">Sign in</a>
    <a href="/register">Create account</a>
  {{end}}
  <form method="post" action="/theme">
    <select name="theme">
      <option value="light">Light</option>
      <option value="dark">Dark</option>
      <option value="system">System</option>
    </select>
    <button type="submit">Apply</button>
  </form>
</nav>
<main>{{end}}

{{define "layout_bottom"}}</main>
</body>
</html>{{end}}

{{define "home"}}{{template "layout_top" .}}
<h1>Welcome to Student's Stage</h1>
{{if .Snapshot.Authenticated}}
  <p><a href="/redirect">Go to your dashboard</a></p>
{{else}}
  <p><a href="/login">Sign in</a> or <a href="/register">create an account</a> to get started.</p>
{{end}}
{{template "layout_bottom" .}}{{end}}

{{define "login"}}{{template "layout_top" .}}
<h1>Sign In</h1>
{{if .Snapshot.Err}}<p class="error">{{.Snapshot.Err}}</p>{{end}}
<form method="post" action="/login">
  <label>Email <input type="email" name="email" required></label>
  <label>Password <input type="password" name="password" required></label>
  <button type="submit">Sign in</button>
</form>
<p>No account yet? <a href="/register">Create one</a>.</p>
{{template "layout_bottom" .}}{{end}}

{{define "register"}}{{template "layout_top" .}}
<h1>Create Account</h1>
{{if .Snapshot.Err}}<p class="error">{{.Snapshot.Err}}</p>{{end}}
<form method="post" action="/register">
  <label>Username <input type="text" name="username" required></label>
  <label>Email <input type="email" name="email" required></label>
  <label>Password <input type="password" name="password" required></label>
  <label>Confirm password <input type="password" name="confirm_password" required></label>
  <button type="submit">Create account</button>
</form>
{{template "layout_bottom" .}}{{end}}

{{define "dashboard"}}{{template "layout_top" .}}
<h1>{{.Title}}</h1>
<p>Signed in as {{.Snapshot.Username}} ({{.RoleLabel}})</p>
{{template "layout_bottom" .}}{{end}}

{{define "users"}}{{template "layout_top" .}}
<h1>User Management</h1>
<table>
  <tr><th>ID</th><th>Username</th><th>Role</th><th></th></tr>
  {{range .Users}}
  <tr>
    <td>{{.ID}}</td>
    <td>{{.Username}}</td>
    <td>{{.Role}}</td>
    <td>
      <form method="post" action="/admin/users">
        <input type="hidden" name="user_id" value="{{.ID}}">
        <select name="role">
          <option value="STUDENT">Student</option>
          <option value="TUTOR">Tutor</option>
          <option value="ADMIN">Admin</option>
        </select>
        <button type="submit">Assign</button>
      </form>
    </td>
  </tr>
  {{end}}
</table>
{{template "layout_bottom" .}}{{end}}

{{define "under_construction"}}{{template "layout_top" .}}
<h1>Under Construction</h1>
<p>This page is not available yet. Check back soon.</p>
{{template "layout_bottom" .}}{{end}}
`))
