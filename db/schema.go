// ABOUTME: Database schema definitions for the contract book
// ABOUTME: Handles SQLite table creation and initialization
package db

import (
	"database/sql"
)

const partyColumns = `
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	abn TEXT,
	email TEXT,
	account_number TEXT,
	office_address TEXT,
	phone_number TEXT,
	contacts TEXT NOT NULL DEFAULT '[]',
	is_deleted INTEGER NOT NULL DEFAULT 0,
	deleted_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
`

const schema = `
CREATE TABLE IF NOT EXISTS buyers (` + partyColumns + `);

CREATE INDEX IF NOT EXISTS idx_buyers_name ON buyers(name);
CREATE INDEX IF NOT EXISTS idx_buyers_is_deleted ON buyers(is_deleted);

CREATE TABLE IF NOT EXISTS sellers (` + partyColumns + `);

CREATE INDEX IF NOT EXISTS idx_sellers_name ON sellers(name);
CREATE INDEX IF NOT EXISTS idx_sellers_is_deleted ON sellers(is_deleted);

CREATE TABLE IF NOT EXISTS contracts (
	id TEXT PRIMARY KEY,
	contract_number TEXT,
	contract_date DATETIME,
	delivery_start DATETIME,
	delivery_end DATETIME,
	xero_invoice_id TEXT,
	xero_invoice_number TEXT,
	buyer_id TEXT,
	seller_id TEXT,
	buyer_contract_reference TEXT,
	seller_contract_reference TEXT,
	buyer_contact TEXT,
	seller_contact TEXT,
	attached_buyer_contract TEXT,
	attached_seller_contract TEXT,
	grade TEXT,
	commodity TEXT,
	contract_type TEXT,
	ngr_number TEXT,
	delivery_option TEXT,
	freight TEXT,
	weights TEXT,
	price_ex_gst TEXT,
	conveyance TEXT,
	certification_scheme TEXT,
	payment_terms TEXT,
	broker_rate TEXT,
	delivery_destination TEXT,
	special_condition TEXT,
	terms_and_conditions TEXT,
	notes TEXT,
	tonnes REAL,
	tolerance TEXT,
	season TEXT,
	brokerage_payable_by TEXT CHECK(brokerage_payable_by IS NULL OR brokerage_payable_by IN ('Buyer', 'Seller', 'Buyer & Seller', 'Seller & Buyer', 'No Brokerage Payable')),
	status TEXT NOT NULL DEFAULT 'Incomplete' CHECK(status IN ('Draft', 'Incomplete', 'Complete', 'Invoiced')),
	is_deleted INTEGER NOT NULL DEFAULT 0,
	deleted_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (buyer_id) REFERENCES buyers(id),
	FOREIGN KEY (seller_id) REFERENCES sellers(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_contracts_contract_number ON contracts(contract_number) WHERE contract_number IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts(status);
CREATE INDEX IF NOT EXISTS idx_contracts_buyer_id ON contracts(buyer_id);
CREATE INDEX IF NOT EXISTS idx_contracts_seller_id ON contracts(seller_id);
CREATE INDEX IF NOT EXISTS idx_contracts_is_deleted ON contracts(is_deleted);

CREATE TABLE IF NOT EXISTS counters (
	name TEXT PRIMARY KEY,
	seq INTEGER NOT NULL
);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
