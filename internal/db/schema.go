package db

// SchemaSQL contains the database schema initialization SQL.
// The session record ID is the access token handed to the interviewee.
const SchemaSQL = `
    DEFINE TABLE IF NOT EXISTS session SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS token ON session TYPE string;
    DEFINE FIELD IF NOT EXISTS interviewee_name ON session TYPE string;
    DEFINE FIELD IF NOT EXISTS interviewer_id ON session TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON session TYPE string DEFAULT "pending";
    DEFINE FIELD IF NOT EXISTS folder_name ON session TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS session_id ON session TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON session TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS start_time ON session TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS end_time ON session TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS questions_answered ON session TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS questions_selected ON session TYPE option<array<string>>;
    DEFINE FIELD IF NOT EXISTS answers ON session FLEXIBLE TYPE option<object>;

    DEFINE INDEX IF NOT EXISTS session_status ON session FIELDS status;
`
