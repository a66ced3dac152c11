package storage

const (
	insertAccount = `INSERT INTO accounts (code, description, created_at) VALUES (?, ?, ?)`

	selectAccount = `SELECT code, description, created_at FROM accounts WHERE code = ?`

	selectAccounts = `SELECT code, description, created_at FROM accounts ORDER BY code`

	selectLastSeq = `SELECT COALESCE(MAX(seq), 0) FROM balances WHERE account_code = ?`

	insertBalance = `INSERT INTO balances (account_code, seq, amount, description, created_at)
VALUES (?, ?, ?, ?, ?)`

	selectBalance = `SELECT account_code, seq, amount, description, created_at
FROM balances WHERE account_code = ? AND seq = ?`

	countBalances = `SELECT COUNT(*) FROM balances`

	selectBalancesPage = `SELECT account_code, seq, amount, description, created_at
FROM balances
ORDER BY created_at DESC, account_code, seq DESC
LIMIT ? OFFSET ?`

	selectBalancesByAccount = `SELECT account_code, seq, amount, description, created_at
FROM balances
WHERE account_code = ?
ORDER BY created_at, seq`

	selectRecentPerAccount = `SELECT account_code, seq, amount, description, created_at, rn, cnt
FROM (
    SELECT account_code, seq, amount, description, created_at,
           ROW_NUMBER() OVER (PARTITION BY account_code ORDER BY created_at DESC, seq DESC) AS rn,
           COUNT(*) OVER (PARTITION BY account_code) AS cnt
    FROM balances
)
WHERE rn <= ?
ORDER BY account_code, rn`
)
