package migrations

func init() {
	register(&Migration{
		Revision:     "0000",
		DownRevision: "",
		Message:      "initial schema",
		CreateDate:   "2026-01-15",
		Up: []Operation{
			Exec{SQL: `CREATE TABLE clubs (
	id VARCHAR(36) NOT NULL,
	name VARCHAR(100) NOT NULL,
	logo_url TEXT,
	county VARCHAR(50) NOT NULL DEFAULT '',
	description TEXT,
	club_type VARCHAR(20) NOT NULL DEFAULT 'community',
	contact_phone VARCHAR(20),
	contact_email VARCHAR(100),
	member_count INTEGER NOT NULL DEFAULT 0,
	tournament_count INTEGER NOT NULL DEFAULT 0,
	total_points INTEGER NOT NULL DEFAULT 0,
	tournament_wins INTEGER NOT NULL DEFAULT 0,
	average_rating INTEGER NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT 1,
	is_verified BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (id),
	UNIQUE (name)
)`},
			CreateIndex{Name: "ix_clubs_county", Table: "clubs", Columns: []string{"county"}},

			Exec{SQL: `CREATE TABLE players (
	id VARCHAR(36) NOT NULL,
	chess_com_username VARCHAR(50) NOT NULL,
	chess_com_avatar TEXT,
	chess_com_joined INTEGER,
	chess_com_status VARCHAR(20),
	rating_rapid INTEGER,
	rating_blitz INTEGER,
	rating_bullet INTEGER,
	ratings_updated_at DATETIME,
	password_hash VARCHAR(128) NOT NULL,
	phone VARCHAR(20) NOT NULL,
	age INTEGER NOT NULL,
	gender VARCHAR(20) NOT NULL,
	county VARCHAR(50),
	club VARCHAR(100),
	club_id VARCHAR(36),
	is_active BOOLEAN NOT NULL DEFAULT 1,
	is_admin BOOLEAN NOT NULL DEFAULT 0,
	push_subscription TEXT,
	push_enabled BOOLEAN NOT NULL DEFAULT 1,
	is_flagged BOOLEAN NOT NULL DEFAULT 0,
	security_risk_level VARCHAR(20) NOT NULL DEFAULT 'normal',
	last_login_at DATETIME,
	registration_ip VARCHAR(45),
	registration_fingerprint VARCHAR(64),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (id),
	UNIQUE (chess_com_username),
	UNIQUE (phone),
	FOREIGN KEY(club_id) REFERENCES clubs (id) ON DELETE SET NULL
)`},
			CreateIndex{Name: "ix_players_county", Table: "players", Columns: []string{"county"}},
			CreateIndex{Name: "ix_players_gender", Table: "players", Columns: []string{"gender"}},
			CreateIndex{Name: "ix_players_age", Table: "players", Columns: []string{"age"}},
			CreateIndex{Name: "ix_players_created_at", Table: "players", Columns: []string{"created_at"}},
			CreateIndex{Name: "ix_players_county_gender", Table: "players", Columns: []string{"county", "gender"}},
			CreateIndex{Name: "ix_players_club_id", Table: "players", Columns: []string{"club_id"}},

			Exec{SQL: `CREATE TABLE tournaments (
	id VARCHAR(36) NOT NULL,
	name VARCHAR(200) NOT NULL,
	description TEXT,
	format VARCHAR(18) NOT NULL DEFAULT 'swiss',
	total_rounds INTEGER NOT NULL DEFAULT 5,
	current_round INTEGER NOT NULL DEFAULT 0,
	time_control VARCHAR(20) NOT NULL DEFAULT '10+0',
	status VARCHAR(12) NOT NULL DEFAULT 'registration',
	max_players INTEGER,
	registration_open DATETIME NOT NULL,
	registration_close DATETIME,
	start_date DATETIME,
	end_date DATETIME,
	county_restrictions TEXT,
	min_rating INTEGER,
	max_rating INTEGER,
	min_age INTEGER,
	max_age INTEGER,
	gender_restriction VARCHAR(11) NOT NULL DEFAULT 'open',
	allowed_clubs TEXT,
	entry_fee FLOAT NOT NULL DEFAULT 0,
	prize_pool FLOAT NOT NULL DEFAULT 0,
	is_paid BOOLEAN NOT NULL DEFAULT 0,
	created_by VARCHAR(36),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (id),
	FOREIGN KEY(created_by) REFERENCES players (id)
)`},
			CreateIndex{Name: "ix_tournaments_status", Table: "tournaments", Columns: []string{"status"}},
			CreateIndex{Name: "ix_tournaments_status_created", Table: "tournaments", Columns: []string{"status", "created_at"}},
			CreateIndex{Name: "ix_tournaments_start_date", Table: "tournaments", Columns: []string{"start_date"}},

			Exec{SQL: `CREATE TABLE tournament_players (
	id VARCHAR(36) NOT NULL,
	tournament_id VARCHAR(36) NOT NULL,
	player_id VARCHAR(36) NOT NULL,
	seed_rating INTEGER NOT NULL DEFAULT 1200,
	score FLOAT NOT NULL DEFAULT 0,
	wins INTEGER NOT NULL DEFAULT 0,
	draws INTEGER NOT NULL DEFAULT 0,
	losses INTEGER NOT NULL DEFAULT 0,
	buchholz FLOAT NOT NULL DEFAULT 0,
	sonneborn_berger FLOAT NOT NULL DEFAULT 0,
	games_as_white INTEGER NOT NULL DEFAULT 0,
	games_as_black INTEGER NOT NULL DEFAULT 0,
	final_rank INTEGER,
	is_withdrawn BOOLEAN NOT NULL DEFAULT 0,
	has_paid BOOLEAN NOT NULL DEFAULT 0,
	joined_at DATETIME NOT NULL,
	PRIMARY KEY (id),
	FOREIGN KEY(tournament_id) REFERENCES tournaments (id),
	FOREIGN KEY(player_id) REFERENCES players (id)
)`},
			CreateIndex{Name: "ix_tp_tournament_score", Table: "tournament_players", Columns: []string{"tournament_id", "score"}},
			CreateIndex{Name: "ix_tp_tournament_withdrawn", Table: "tournament_players", Columns: []string{"tournament_id", "is_withdrawn"}},
			CreateIndex{Name: "ix_tp_tournament_player", Table: "tournament_players", Columns: []string{"tournament_id", "player_id"}, Unique: true},
			CreateIndex{Name: "ix_tournament_players_player_id", Table: "tournament_players", Columns: []string{"player_id"}},

			Exec{SQL: `CREATE TABLE pairings (
	id VARCHAR(36) NOT NULL,
	tournament_id VARCHAR(36) NOT NULL,
	round_number INTEGER NOT NULL,
	white_player_id VARCHAR(36),
	black_player_id VARCHAR(36),
	board_number INTEGER NOT NULL DEFAULT 1,
	result VARCHAR(14) NOT NULL DEFAULT 'pending',
	chess_com_game_url TEXT,
	chess_com_game_id VARCHAR(100),
	white_notified BOOLEAN NOT NULL DEFAULT 0,
	black_notified BOOLEAN NOT NULL DEFAULT 0,
	scheduled_time DATETIME,
	played_at DATETIME,
	deadline DATETIME,
	no_show_claimed_by VARCHAR(36),
	no_show_claimed_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (id),
	FOREIGN KEY(tournament_id) REFERENCES tournaments (id),
	FOREIGN KEY(white_player_id) REFERENCES players (id),
	FOREIGN KEY(black_player_id) REFERENCES players (id),
	FOREIGN KEY(no_show_claimed_by) REFERENCES players (id)
)`},
			CreateIndex{Name: "ix_pairings_tournament_round", Table: "pairings", Columns: []string{"tournament_id", "round_number"}},
			CreateIndex{Name: "ix_pairings_tournament_round_board", Table: "pairings", Columns: []string{"tournament_id", "round_number", "board_number"}},
			CreateIndex{Name: "ix_pairings_white_player", Table: "pairings", Columns: []string{"white_player_id"}},
			CreateIndex{Name: "ix_pairings_black_player", Table: "pairings", Columns: []string{"black_player_id"}},
			CreateIndex{Name: "ix_pairings_result", Table: "pairings", Columns: []string{"tournament_id", "result"}},
			CreateIndex{Name: "ix_pairings_deadline", Table: "pairings", Columns: []string{"deadline", "result"}},

			Exec{SQL: `CREATE TABLE otps (
	id VARCHAR(36) NOT NULL,
	phone VARCHAR(20) NOT NULL,
	purpose VARCHAR(20) NOT NULL,
	otp_hash VARCHAR(64) NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	is_used BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL,
	used_at DATETIME,
	PRIMARY KEY (id)
)`},
			CreateIndex{Name: "ix_otps_phone", Table: "otps", Columns: []string{"phone"}},
			CreateIndex{Name: "ix_otps_phone_purpose", Table: "otps", Columns: []string{"phone", "purpose"}},
			CreateIndex{Name: "ix_otps_expires_at", Table: "otps", Columns: []string{"expires_at"}},

			Exec{SQL: `CREATE TABLE notifications (
	id VARCHAR(36) NOT NULL,
	player_id VARCHAR(36) NOT NULL,
	type VARCHAR(50) NOT NULL,
	title VARCHAR(200) NOT NULL,
	body TEXT NOT NULL,
	data TEXT NOT NULL DEFAULT '{}',
	is_read BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	PRIMARY KEY (id)
)`},
			CreateIndex{Name: "ix_notifications_player_id", Table: "notifications", Columns: []string{"player_id"}},
			CreateIndex{Name: "ix_notifications_player_unread", Table: "notifications", Columns: []string{"player_id", "is_read"}},
			CreateIndex{Name: "ix_notifications_player_created", Table: "notifications", Columns: []string{"player_id", "created_at"}},

			Exec{SQL: `CREATE TABLE login_history (
	id VARCHAR(36) NOT NULL,
	player_id VARCHAR(36) NOT NULL,
	fingerprint_hash VARCHAR(64) NOT NULL,
	user_agent TEXT,
	platform VARCHAR(50),
	browser VARCHAR(50),
	screen_resolution VARCHAR(20),
	timezone VARCHAR(50),
	language VARCHAR(10),
	ip_address VARCHAR(45) NOT NULL,
	country VARCHAR(50),
	city VARCHAR(100),
	login_successful BOOLEAN NOT NULL DEFAULT 1,
	session_type VARCHAR(20) NOT NULL DEFAULT 'login',
	is_new_device BOOLEAN NOT NULL DEFAULT 0,
	is_new_location BOOLEAN NOT NULL DEFAULT 0,
	risk_score FLOAT NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	PRIMARY KEY (id),
	FOREIGN KEY(player_id) REFERENCES players (id) ON DELETE CASCADE
)`},
			CreateIndex{Name: "ix_login_history_player_id", Table: "login_history", Columns: []string{"player_id"}},
			CreateIndex{Name: "ix_login_history_fingerprint_hash", Table: "login_history", Columns: []string{"fingerprint_hash"}},
			CreateIndex{Name: "ix_login_history_player_created", Table: "login_history", Columns: []string{"player_id", "created_at"}},

			Exec{SQL: `CREATE TABLE security_flags (
	id VARCHAR(36) NOT NULL,
	player_id VARCHAR(36) NOT NULL,
	flag_type VARCHAR(50) NOT NULL,
	severity VARCHAR(20) NOT NULL DEFAULT 'low',
	title VARCHAR(200) NOT NULL,
	description TEXT NOT NULL,
	extra_data TEXT,
	related_login_id VARCHAR(36),
	related_tournament_id VARCHAR(36),
	status VARCHAR(20) NOT NULL DEFAULT 'open',
	resolved_by VARCHAR(36),
	resolved_at DATETIME,
	resolution_notes TEXT,
	created_at DATETIME NOT NULL,
	PRIMARY KEY (id),
	FOREIGN KEY(player_id) REFERENCES players (id) ON DELETE CASCADE
)`},
			CreateIndex{Name: "ix_security_flags_player_id", Table: "security_flags", Columns: []string{"player_id"}},
			CreateIndex{Name: "ix_security_flags_severity", Table: "security_flags", Columns: []string{"severity"}},
			CreateIndex{Name: "ix_security_flags_status", Table: "security_flags", Columns: []string{"status"}},
			CreateIndex{Name: "ix_security_flags_created_at", Table: "security_flags", Columns: []string{"created_at"}},
			CreateIndex{Name: "ix_security_flags_flag_type", Table: "security_flags", Columns: []string{"flag_type"}},
		},
		Down: []Operation{
			Exec{SQL: "DROP TABLE security_flags"},
			Exec{SQL: "DROP TABLE login_history"},
			Exec{SQL: "DROP TABLE notifications"},
			Exec{SQL: "DROP TABLE otps"},
			Exec{SQL: "DROP TABLE pairings"},
			Exec{SQL: "DROP TABLE tournament_players"},
			Exec{SQL: "DROP TABLE tournaments"},
			Exec{SQL: "DROP TABLE players"},
			Exec{SQL: "DROP TABLE clubs"},
		},
	})
}
