package internal

const (
	// MOTD
	RPL_MOTDSTART = "375"
	RPL_MOTD      = "372"
	RPL_ENDOFMOTD = "376"
	ERR_NOMOTD    = "422"

	// Errors
	ERR_NICKNAMEINUSE = "433"

	// IRC Commands
	CMD_PING    = "PING"
	CMD_PONG    = "PONG"
	CMD_PASS    = "PASS"
	CMD_USER    = "USER"
	CMD_PRIVMSG = "PRIVMSG"
	CMD_NOTICE  = "NOTICE"
	CMD_JOIN    = "JOIN"
	CMD_PART    = "PART"
	CMD_QUIT    = "QUIT"
	CMD_NICK    = "NICK"
	CMD_MODE    = "MODE"
	CMD_ERROR   = "ERROR"
)

const (
	BOT_VERSION = "obot 11.4"

	DEFAULT_CONFIG_PATH  = "./data/config.toml"
	DEFAULT_CONFIG_NAME  = ".obot.toml"
	DEFAULT_PLUGINS_PATH = "./plugins"
	DEFAULT_CHATLOG_PATH = "./logs"

	DEFAULT_COMMAND_PREFIX = "!"
	DEFAULT_USER_MODES     = "+xipTB-w"
	DEFAULT_PORT           = 6667
	DEFAULT_SSL_PORT       = 6697
	DEFAULT_MAX_SESSIONS   = 15

	// Seconds
	DEFAULT_RECONNECT_DELAY = 30
	DEFAULT_CONNECT_TIMEOUT = 30

	DEFAULT_BUFFER_SIZE = 4096
	MAX_LINE_LENGTH     = 512
	LINE_DELIMITER      = "\r\n"

	NICKSERV = "NickServ"
)
