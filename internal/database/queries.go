package database

const (
	// User queries
	queryGetUsers = `
		SELECT id, name, email, created_at, updated_at
		FROM users
		ORDER BY created_at`

	queryInsertUser = `
		INSERT INTO users (id, name, email) VALUES (?, ?, ?)
		RETURNING id, name, email, created_at, updated_at`

	queryGetUserById = `
		SELECT id, name, email, created_at, updated_at
		FROM users
		WHERE id = ?`

	queryGetUserByEmail = `
		SELECT id, name, email, created_at, updated_at
		FROM users
		WHERE email = ?`

	// Deposit address queries
	queryInsertDepositAddress = `
		INSERT INTO deposit_addresses (id, user_id, network, amount, address, status, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, 'pending', ?, ?)`

	queryGetDepositAddress = `
		SELECT id, user_id, network, amount, address, status, created_at, expires_at, completed_at
		FROM deposit_addresses
		WHERE id = ?`

	queryGetPendingAddresses = `
		SELECT id, user_id, network, amount, address, status, created_at, expires_at, completed_at
		FROM deposit_addresses
		WHERE status = 'pending'
		ORDER BY created_at`

	queryExpireAddresses = `
		UPDATE deposit_addresses
		SET status = 'expired'
		WHERE status = 'pending' AND expires_at <= ?`

	queryCancelDepositAddress = `
		UPDATE deposit_addresses
		SET status = 'cancelled'
		WHERE id = ? AND status = 'pending'`

	queryCompleteDepositAddress = `
		UPDATE deposit_addresses
		SET status = 'completed', completed_at = ?
		WHERE id = ? AND status = 'pending' AND expires_at > ?`

	// Balance queries
	queryGetBalance = `
		SELECT user_id, balance, COALESCE(last_transaction_id, ''), version, updated_at
		FROM balances
		WHERE user_id = ?`

	queryGetBalanceForUpdate = `
		SELECT balance, version
		FROM balances
		WHERE user_id = ?`

	queryGetAllBalances = `
		SELECT user_id, balance, COALESCE(last_transaction_id, ''), version, updated_at
		FROM balances
		ORDER BY user_id`

	queryInsertBalance = `
		INSERT INTO balances (user_id, balance, version) VALUES (?, ?, 1)`

	queryUpdateBalance = `
		UPDATE balances
		SET balance = ?, last_transaction_id = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND version = ?`

	queryLedgerEntries = `
		SELECT kind, status, amount
		FROM transactions
		WHERE user_id = ?`

	// Transaction queries
	queryCheckAddressSettled = `
		SELECT id FROM transactions WHERE deposit_address_id = ? LIMIT 1`

	queryInsertTransaction = `
		INSERT INTO transactions (
			id, user_id, kind, amount, currency, network, status, tx_hash,
			deposit_address_id, destination_address, notes, balance_before, balance_after,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetTransaction = `
		SELECT id, user_id, kind, amount, currency, network, status, tx_hash,
		       COALESCE(deposit_address_id, ''), destination_address, notes,
		       balance_before, balance_after, created_at, updated_at
		FROM transactions
		WHERE id = ?`

	queryGetTransactionForUpdate = `
		SELECT id, user_id, kind, amount, currency, network, status, tx_hash,
		       COALESCE(deposit_address_id, ''), destination_address, notes,
		       balance_before, balance_after, created_at, updated_at
		FROM transactions
		WHERE id = ? AND kind = 'withdrawal' AND status = 'pending'`

	queryUpdateTransactionStatus = `
		UPDATE transactions
		SET status = ?, tx_hash = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'`

	queryGetTransactionHistory = `
		SELECT id, user_id, kind, amount, currency, network, status, tx_hash,
		       COALESCE(deposit_address_id, ''), destination_address, notes,
		       balance_before, balance_after, created_at, updated_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`
)
