package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// authenticateHandler implements POST /auth. With an external token
// URL configured the password grant is proxied to the OAuth2 provider;
// otherwise credentials are checked locally and a token is issued here.
func (app *application) authenticateHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-type", "application/json")
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	err := json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	v := newValidator()
	v.checkEmail(input.Email)
	v.checkCond(input.Password != "", "password", "must be provided")
	if v.hasErrors() {
		writeError(w, v.toError(), http.StatusBadRequest)
		return
	}

	if app.config.auth.tokenURL != "" {
		app.proxyPasswordGrant(w, input.Email, input.Password)
		return
	}
	app.issueLocalToken(w, input.Email, input.Password)
}

func (app *application) proxyPasswordGrant(w http.ResponseWriter, email, password string) {
	form := url.Values{}
	form.Set("client_id", app.config.auth.clientID)
	form.Set("client_secret", app.config.auth.clientSecret)
	form.Set("username", email)
	form.Set("password", password)
	form.Set("grant_type", app.config.auth.grantType)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(app.config.auth.tokenURL, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		log.Println(err)
		writeError(w, errors.New("authentication failed"), http.StatusUnauthorized)
		return
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		log.Printf("token endpoint returned status %d", resp.StatusCode)
		writeError(w, errors.New("authentication failed"), http.StatusUnauthorized)
		return
	}
	w.Write(body)
}

func (app *application) issueLocalToken(w http.ResponseWriter, email, password string) {
	u, err := app.storage.getUserByEmail(email)
	if err != nil {
		log.Println(err)
		writeError(w, errors.New("internal server error"), http.StatusInternalServerError)
		return
	}
	if u == nil || len(u.PasswordHash) == 0 {
		writeError(w, errors.New("invalid credentials"), http.StatusUnauthorized)
		return
	}
	err = bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password))
	if err != nil {
		writeError(w, errors.New("invalid credentials"), http.StatusUnauthorized)
		return
	}

	givenName, familyName, _ := strings.Cut(u.FullName, " ")
	claims := jwt.MapClaims{
		"email":       u.Email,
		"given_name":  givenName,
		"family_name": familyName,
		"exp":         time.Now().Add(24 * time.Hour).Unix(),
		"iat":         time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(app.config.auth.jwtSecret))
	if err != nil {
		log.Println(err)
		writeError(w, errors.New("internal server error"), http.StatusInternalServerError)
		return
	}
	data, err := json.Marshal(map[string]string{"access_token": signed, "token_type": "Bearer"})
	if err != nil {
		writeError(w, errors.New("internal server error"), http.StatusInternalServerError)
		return
	}
	w.Write(data)
}
