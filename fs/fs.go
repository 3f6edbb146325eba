package appfs

import "embed"

// FS holds the sql migrations, the email templates and the common passwords list.
//
//go:embed migrations all:templates common-passwords.txt.gz
var FS embed.FS
