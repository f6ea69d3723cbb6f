// Package migrate declares the relational schema and applies it with ent's
// migration engine.
package migrate

import (
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var (
	moneyType = map[string]string{dialect.Postgres: "numeric(12,2)"}
	rateType  = map[string]string{dialect.Postgres: "numeric(5,4)"}
	textType  = map[string]string{dialect.Postgres: "text"}

	// MembershipLevelsColumns holds the columns for the "membership_levels" table.
	MembershipLevelsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true, Size: 36},
		{Name: "name", Type: field.TypeString},
		{Name: "commission_rate", Type: field.TypeFloat64, SchemaType: rateType},
		{Name: "created_at", Type: field.TypeTime},
	}
	// MembershipLevelsTable holds the schema information for the "membership_levels" table.
	MembershipLevelsTable = &schema.Table{
		Name:       "membership_levels",
		Columns:    MembershipLevelsColumns,
		PrimaryKey: []*schema.Column{MembershipLevelsColumns[0]},
	}

	// AffiliatesColumns holds the columns for the "affiliates" table.
	AffiliatesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true, Size: 36},
		{Name: "user_id", Type: field.TypeString, Unique: true, Size: 36},
		{Name: "slug", Type: field.TypeString, Unique: true, Size: 100},
		{Name: "name", Type: field.TypeString, Default: ""},
		{Name: "email", Type: field.TypeString, Default: ""},
		{Name: "status", Type: field.TypeString, Size: 20, Default: "pending"},
		{Name: "account_holder_name", Type: field.TypeString, Default: ""},
		{Name: "account_number", Type: field.TypeString, Size: 50, Default: ""},
		{Name: "bank_name", Type: field.TypeString, Default: ""},
		{Name: "gcash_number", Type: field.TypeString, Size: 20, Default: ""},
		{Name: "gcash_name", Type: field.TypeString, Default: ""},
		{Name: "bank_account_verified", Type: field.TypeBool, Default: false},
		{Name: "gcash_verified", Type: field.TypeBool, Default: false},
		{Name: "network_name", Type: field.TypeString, Nullable: true, Size: 100},
		{Name: "postback_url", Type: field.TypeString, Nullable: true, Size: 2048},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "membership_level_id", Type: field.TypeString, Nullable: true, Size: 36},
	}
	// AffiliatesTable holds the schema information for the "affiliates" table.
	AffiliatesTable = &schema.Table{
		Name:       "affiliates",
		Columns:    AffiliatesColumns,
		PrimaryKey: []*schema.Column{AffiliatesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "affiliates_membership_levels_affiliates",
				Columns:    []*schema.Column{AffiliatesColumns[16]},
				RefColumns: []*schema.Column{MembershipLevelsColumns[0]},
				OnDelete:   schema.SetNull,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "affiliate_status",
				Unique:  false,
				Columns: []*schema.Column{AffiliatesColumns[5]},
			},
		},
	}

	// AffiliateClicksColumns holds the columns for the "affiliate_clicks" table.
	AffiliateClicksColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true, Size: 36},
		{Name: "visitor_id", Type: field.TypeString, Size: 64},
		{Name: "sub_id", Type: field.TypeString, Nullable: true},
		{Name: "ip_address", Type: field.TypeString, Size: 64, Default: ""},
		{Name: "user_agent", Type: field.TypeString, Size: 2048, Default: "", SchemaType: textType},
		{Name: "referral_url", Type: field.TypeString, Size: 2048, Default: "", SchemaType: textType},
		{Name: "landing_page_url", Type: field.TypeString, Size: 2048, Default: "", SchemaType: textType},
		{Name: "utm_source", Type: field.TypeString, Default: ""},
		{Name: "utm_medium", Type: field.TypeString, Default: ""},
		{Name: "utm_campaign", Type: field.TypeString, Default: ""},
		{Name: "utm_content", Type: field.TypeString, Default: ""},
		{Name: "utm_term", Type: field.TypeString, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "affiliate_id", Type: field.TypeString, Size: 36},
	}
	// AffiliateClicksTable holds the schema information for the "affiliate_clicks" table.
	AffiliateClicksTable = &schema.Table{
		Name:       "affiliate_clicks",
		Columns:    AffiliateClicksColumns,
		PrimaryKey: []*schema.Column{AffiliateClicksColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "affiliate_clicks_affiliates_clicks",
				Columns:    []*schema.Column{AffiliateClicksColumns[13]},
				RefColumns: []*schema.Column{AffiliatesColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "affiliateclick_affiliate_id_visitor_id_created_at",
				Unique:  false,
				Columns: []*schema.Column{AffiliateClicksColumns[13], AffiliateClicksColumns[1], AffiliateClicksColumns[12]},
			},
		},
	}

	// AffiliateConversionsColumns holds the columns for the "affiliate_conversions" table.
	AffiliateConversionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true, Size: 36},
		{Name: "order_id", Type: field.TypeString, Unique: true},
		{Name: "gmv", Type: field.TypeFloat64, SchemaType: moneyType},
		{Name: "commission_amount", Type: field.TypeFloat64, Nullable: true, SchemaType: moneyType},
		{Name: "commission_rate", Type: field.TypeFloat64, Nullable: true, SchemaType: rateType},
		{Name: "sub_id", Type: field.TypeString, Nullable: true},
		{Name: "status", Type: field.TypeString, Size: 20, Default: "pending"},
		{Name: "flag_reason", Type: field.TypeString, Nullable: true},
		{Name: "cleared_at", Type: field.TypeTime, Nullable: true},
		{Name: "paid_at", Type: field.TypeTime, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "affiliate_id", Type: field.TypeString, Size: 36},
		{Name: "click_id", Type: field.TypeString, Nullable: true, Size: 36},
	}
	// AffiliateConversionsTable holds the schema information for the "affiliate_conversions" table.
	AffiliateConversionsTable = &schema.Table{
		Name:       "affiliate_conversions",
		Columns:    AffiliateConversionsColumns,
		PrimaryKey: []*schema.Column{AffiliateConversionsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "affiliate_conversions_affiliates_conversions",
				Columns:    []*schema.Column{AffiliateConversionsColumns[11]},
				RefColumns: []*schema.Column{AffiliatesColumns[0]},
				OnDelete:   schema.NoAction,
			},
			{
				Symbol:     "affiliate_conversions_affiliate_clicks_conversions",
				Columns:    []*schema.Column{AffiliateConversionsColumns[12]},
				RefColumns: []*schema.Column{AffiliateClicksColumns[0]},
				OnDelete:   schema.SetNull,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "affiliateconversion_affiliate_id_status",
				Unique:  false,
				Columns: []*schema.Column{AffiliateConversionsColumns[11], AffiliateConversionsColumns[6]},
			},
			{
				Name:    "affiliateconversion_status_created_at",
				Unique:  false,
				Columns: []*schema.Column{AffiliateConversionsColumns[6], AffiliateConversionsColumns[10]},
			},
		},
	}

	// NetworkPostbacksColumns holds the columns for the "network_postbacks" table.
	NetworkPostbacksColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true, Size: 36},
		{Name: "network_name", Type: field.TypeString, Size: 100},
		{Name: "sub_id", Type: field.TypeString, Nullable: true},
		{Name: "postback_url", Type: field.TypeString, Size: 2048},
		{Name: "status", Type: field.TypeString, Size: 20, Default: "pending"},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "conversion_id", Type: field.TypeString, Unique: true, Size: 36},
	}
	// NetworkPostbacksTable holds the schema information for the "network_postbacks" table.
	NetworkPostbacksTable = &schema.Table{
		Name:       "network_postbacks",
		Columns:    NetworkPostbacksColumns,
		PrimaryKey: []*schema.Column{NetworkPostbacksColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "network_postbacks_affiliate_conversions_postback",
				Columns:    []*schema.Column{NetworkPostbacksColumns[6]},
				RefColumns: []*schema.Column{AffiliateConversionsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	// AffiliateProgramConfigColumns holds the columns for the "affiliate_program_config" table.
	AffiliateProgramConfigColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Unique: true},
		{Name: "min_payout_threshold", Type: field.TypeFloat64, SchemaType: moneyType},
		{Name: "enabled_payout_methods", Type: field.TypeJSON},
		{Name: "require_verification_for_bank_transfer", Type: field.TypeBool, Default: true},
		{Name: "require_verification_for_gcash", Type: field.TypeBool, Default: false},
		{Name: "cookie_duration_days", Type: field.TypeInt, Default: 30},
		{Name: "refund_period_days", Type: field.TypeInt, Default: 30},
		{Name: "payout_currency", Type: field.TypeString, Size: 3, Default: "PHP"},
	}
	// AffiliateProgramConfigTable holds the schema information for the "affiliate_program_config" table.
	AffiliateProgramConfigTable = &schema.Table{
		Name:       "affiliate_program_config",
		Columns:    AffiliateProgramConfigColumns,
		PrimaryKey: []*schema.Column{AffiliateProgramConfigColumns[0]},
	}

	// PurchaseLeadsColumns holds the columns for the "purchase_leads" table.
	PurchaseLeadsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true, Size: 36},
		{Name: "email", Type: field.TypeString},
		{Name: "first_name", Type: field.TypeString, Default: ""},
		{Name: "product_type", Type: field.TypeString, Size: 50, Default: ""},
		{Name: "status", Type: field.TypeString, Size: 20, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
	}
	// PurchaseLeadsTable holds the schema information for the "purchase_leads" table.
	PurchaseLeadsTable = &schema.Table{
		Name:       "purchase_leads",
		Columns:    PurchaseLeadsColumns,
		PrimaryKey: []*schema.Column{PurchaseLeadsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "purchaselead_created_at",
				Unique:  false,
				Columns: []*schema.Column{PurchaseLeadsColumns[5]},
			},
		},
	}

	// EnrollmentsColumns holds the columns for the "enrollments" table.
	EnrollmentsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true, Size: 36},
		{Name: "email", Type: field.TypeString},
		{Name: "status", Type: field.TypeString, Size: 20},
		{Name: "created_at", Type: field.TypeTime},
	}
	// EnrollmentsTable holds the schema information for the "enrollments" table.
	EnrollmentsTable = &schema.Table{
		Name:       "enrollments",
		Columns:    EnrollmentsColumns,
		PrimaryKey: []*schema.Column{EnrollmentsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "enrollment_email_status",
				Unique:  false,
				Columns: []*schema.Column{EnrollmentsColumns[1], EnrollmentsColumns[2]},
			},
		},
	}

	// EmailJobsColumns holds the columns for the "email_jobs" table.
	EmailJobsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true, Size: 36},
		{Name: "email", Type: field.TypeString},
		{Name: "first_name", Type: field.TypeString, Default: ""},
		{Name: "campaign_key", Type: field.TypeString, Size: 100},
		{Name: "lead_id", Type: field.TypeString, Nullable: true, Size: 36},
		{Name: "status", Type: field.TypeString, Size: 20, Default: "pending"},
		{Name: "attempts", Type: field.TypeInt, Default: 0},
		{Name: "last_error", Type: field.TypeString, Nullable: true, Size: 2048, SchemaType: textType},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "sent_at", Type: field.TypeTime, Nullable: true},
	}
	// EmailJobsTable holds the schema information for the "email_jobs" table.
	EmailJobsTable = &schema.Table{
		Name:       "email_jobs",
		Columns:    EmailJobsColumns,
		PrimaryKey: []*schema.Column{EmailJobsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "emailjob_email_campaign_key",
				Unique:  true,
				Columns: []*schema.Column{EmailJobsColumns[1], EmailJobsColumns[3]},
			},
			{
				Name:    "emailjob_status_created_at",
				Unique:  false,
				Columns: []*schema.Column{EmailJobsColumns[5], EmailJobsColumns[8]},
			},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		MembershipLevelsTable,
		AffiliatesTable,
		AffiliateClicksTable,
		AffiliateConversionsTable,
		NetworkPostbacksTable,
		AffiliateProgramConfigTable,
		PurchaseLeadsTable,
		EnrollmentsTable,
		EmailJobsTable,
	}
)

func init() {
	AffiliatesTable.ForeignKeys[0].RefTable = MembershipLevelsTable
	AffiliateClicksTable.ForeignKeys[0].RefTable = AffiliatesTable
	AffiliateConversionsTable.ForeignKeys[0].RefTable = AffiliatesTable
	AffiliateConversionsTable.ForeignKeys[1].RefTable = AffiliateClicksTable
	NetworkPostbacksTable.ForeignKeys[0].RefTable = AffiliateConversionsTable
}
