/*
Package authsdk is a Go client for the postauth HTTP API.

# SDKClient vs Session

  - SDKClient: unauthenticated operations (registration, login, refresh,
    password resets, health checks) and the entry point for sessions
  - Session: operations on behalf of a logged-in principal, with automatic
    refresh of the access token

	client := authsdk.NewSDKClient("https://auth.example.com")

	if _, err := client.Register(ctx, authsdk.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct horse battery staple",
	}); err != nil {
		return err
	}

	session, err := client.Login(ctx, "alice", "correct horse battery staple")
	if err != nil {
		return err
	}
	defer session.Logout(ctx)

	comment, err := session.CreateComment(ctx, postID, "first!")

# Automatic Token Refresh

Every Session method asks for a valid access token first. When the current one
is within 30 seconds of expiry the refresh token is rotated and both tokens are
replaced. Refresh tokens are single use: a Session must not be copied between
processes, and a token handed to NewSessionFromTokens must not be used
elsewhere afterwards.

# Error Handling

Non-2xx responses come back as *APIError carrying the HTTP status and the
"error" code from the response body:

	_, err := client.Login(ctx, "alice", "wrong")
	if authsdk.IsCode(err, authsdk.CodeInvalidCredentials) {
		// ask again
	}

Password reset consumption reports every token problem as
CodeInvalidResetToken, and reset requests always succeed whether or not the
address is registered.

# Thread Safety

Sessions are safe for concurrent use. A refresh holds the write lock, so
concurrent callers never spend the same refresh token twice.
*/
package authsdk
