// Package migrations registers the application's schema migrations with
// pkg/migration. Importing it for side effects is enough:
//
//	import _ "github.com/anfisaforfriends/anfisa/database/migrations"
package migrations
