package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はローカルゲートウェイモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandInstall はオフラインキャッシュ世代の事前取得のみを行うことを示す。
	CommandInstall Command = "install"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "install":
		return CommandInstall
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
