// 包 version：构建信息，由 -ldflags "-X" 注入
package version

var (
	Commit = "dev"
	Date   = ""
)
