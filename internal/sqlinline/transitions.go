package sqlinline

const QInsertTransition = `--sql 98e3d1a9-e7c2-4f27-ae65-7bccb7da167e
insert into sql_expansion_transitions (query_id, from_status, to_status, error_code, trace_id, at)
values ($1::text, nullif($2::text, ''), $3::text, nullif($4::text, ''), nullif($5::text, ''), $6::timestamptz)
returning id;
`

const QListTransitions = `--sql 7c334c20-9d7c-478d-92ea-8a69dfe1557a
select id, query_id, coalesce(from_status, ''), to_status, coalesce(error_code, ''), coalesce(trace_id, ''), at
from sql_expansion_transitions
where query_id = $1::text
order by at asc, id asc
limit $2::int;
`

const QPurgeTransitions = `--sql 23761a2c-c25f-4c88-8bc9-77dacc30263f
delete from sql_expansion_transitions
where at < $1::timestamptz;
`
