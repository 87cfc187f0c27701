package protocol

// RPC method names.
const (
	MethodConnect = "connect"
	MethodHealth  = "health"
	MethodStatus  = "status"

	MethodChatSend = "chat.send"

	MethodAPIKeysSet    = "apikeys.set"
	MethodAPIKeysList   = "apikeys.list"
	MethodAPIKeysDelete = "apikeys.delete"

	MethodCacheInspect = "cache.inspect"
	MethodCacheClear   = "cache.clear"

	MethodDriveStatus = "drive.status"

	MethodConfigGet = "config.get"
)
