package store

// schema is applied on every Open; all statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS songs (
	id         INTEGER PRIMARY KEY,
	title      TEXT NOT NULL,
	md5        TEXT NOT NULL,
	url        TEXT NOT NULL,
	size       INTEGER NOT NULL DEFAULT 0,
	local_path TEXT NOT NULL DEFAULT '',
	status     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS schedules (
	date_key TEXT PRIMARY KEY,
	priority INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS windows (
	date_key    TEXT NOT NULL,
	pos         INTEGER NOT NULL,
	start_time  TEXT NOT NULL,
	end_time    TEXT NOT NULL,
	playlist_id INTEGER NOT NULL,
	PRIMARY KEY (date_key, pos)
);

CREATE TABLE IF NOT EXISTS playlists (
	id   INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	mode TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS playlist_songs (
	playlist_id INTEGER NOT NULL,
	pos         INTEGER NOT NULL,
	song_id     INTEGER NOT NULL,
	PRIMARY KEY (playlist_id, pos)
);

CREATE TABLE IF NOT EXISTS config (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
