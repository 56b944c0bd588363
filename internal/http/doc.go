// Package httpapp provides the HTTP server for postboard.
//
//	@title						Postboard API
//	@version					1.0
//	@description				A blogging backend: users, posts, votes and comments.
//	@description
//	@description				Exchange credentials for a bearer token at POST /auth/token
//	@description				(form-encoded username + password; the username field also
//	@description				accepts the account email). All mutating endpoints except
//	@description				registration require the token:
//	@description
//	@description				```bash
//	@description				curl -X POST /auth/token -d 'username=alice&password=...'
//	@description				curl -X POST /users/alice/posts/ -H "Authorization: Bearer TOKEN" -d '{"title":"..."}'
//	@description				```
//	@description
//	@description				Reads are open; mutations are gated by ownership. Votes are
//	@description				0-5, one per user per post, upserted in place.
//
//	@BasePath					/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token from /auth/token
//
//	@tag.name					Auth
//	@tag.description			Password login and token issuance.
//
//	@tag.name					Users
//	@tag.description			Registration and profile CRUD. Deleting a user removes their posts, votes and comments.
//
//	@tag.name					Posts
//	@tag.description			Posts nested under their owner, addressed by public id (puid).
//
//	@tag.name					Votes
//	@tag.description			One vote per user per post, value 0-5, upsert semantics.
//
//	@tag.name					Comments
//	@tag.description			Comments on posts. Deletable by author or post owner.
package httpapp
