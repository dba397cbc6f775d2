package sqlinline

// Donation history queries for the PostgreSQL store. The first line of each
// query is the marker the SQL runner logs it under.

const QCreateDonationsTable = `--sql ff9a8663-6a50-4fab-abb5-777c312e38cb
create table if not exists donations (
  id uuid primary key,
  username text not null,
  platform text not null,
  amount_minor bigint not null,
  currency text not null,
  message text not null default '',
  donor_note text not null default '',
  tier_name text not null,
  motor int not null default 0,
  status text not null default 'queued',
  actuated boolean not null default false,
  created_at timestamptz not null,
  dispatched_at timestamptz
);
create index if not exists donations_created_at_idx on donations (created_at desc);
`

const QInsertDonation = `--sql 7e7212f1-ff7e-46b0-94eb-e825a5b1391a
insert into donations(id, username, platform, amount_minor, currency, message, donor_note, tier_name, motor, status, created_at)
values ($1::uuid, $2::text, $3::text, $4::bigint, $5::text, $6::text, $7::text, $8::text, $9::int, $10::text, $11::timestamptz);
`

const QMarkDonationDispatched = `--sql f379da73-99f5-4636-be6c-ac46796a876e
update donations
set status = $2::text, actuated = $3::boolean, dispatched_at = $4::timestamptz
where id = $1::uuid;
`

const QListRecentDonations = `--sql 1fe4a6d0-4951-4bd0-abb1-79a58410f9b1
select id::text, username, platform, amount_minor, currency, message, donor_note, tier_name, motor, status, actuated, created_at, dispatched_at
from donations
order by created_at desc
limit $1::int;
`

const QPruneDonations = `--sql f26f266e-9e9e-474d-839f-8ef34eca6c99
delete from donations
where created_at < $1::timestamptz;
`
