package repository

const upsertApplicantCypher = `
MERGE (a:Applicant {pan: $pan})
ON CREATE SET a.createdAt = coalesce($props.createdAt, toString(datetime()))
SET a += $props
SET a.updatedAt = coalesce($props.updatedAt, toString(datetime()))
WITH a
FOREACH (b IN $bureau |
	MERGE (a)-[:HAS_BUREAU_RECORD]->(r:BureauRecord)
	SET r += b
)
RETURN a.pan AS pan
`

const findApplicantCypher = `
MATCH (a:Applicant {pan: $pan})
OPTIONAL MATCH (a)-[:HAS_BUREAU_RECORD]->(r:BureauRecord)
RETURN a.pan AS pan,
	a.fullName AS fullName,
	a.mobile AS mobile,
	a.dateOfBirth AS dateOfBirth,
	a.latestScore AS latestScore,
	a.createdAt AS createdAt,
	a.updatedAt AS updatedAt,
	r.score AS bureauScore,
	r.openAccounts AS openAccounts,
	r.creditUtilization AS creditUtilization,
	r.delinquencies AS delinquencies,
	r.hardEnquiries AS hardEnquiries,
	r.oldestAccountMonths AS oldestAccountMonths,
	r.reportedAt AS reportedAt
LIMIT 1
`

const recordScoreCheckCypher = `
MERGE (a:Applicant {pan: $pan})
ON CREATE SET a.createdAt = $checkedAt
SET a.latestScore = $score, a.updatedAt = $checkedAt
CREATE (a)-[:CHECKED]->(:ScoreCheck {score: $score, source: $source, checkedAt: $checkedAt})
RETURN a.pan AS pan
`

const latestScoreCypher = `
MATCH (a:Applicant {pan: $pan})
WHERE a.latestScore IS NOT NULL
RETURN a.latestScore AS score
`

const saveSubscriptionCypher = `
MERGE (a:Applicant {pan: $pan})
MERGE (s:Subscription {subscriptionId: $subscriptionId})
SET s += $props
MERGE (a)-[:SUBSCRIBED_TO]->(s)
RETURN s.subscriptionId AS subscriptionId
`

const activeSubscriptionCypher = `
MATCH (:Applicant {pan: $pan})-[:SUBSCRIBED_TO]->(s:Subscription)
WHERE s.status = 'active' AND (s.endDate = '' OR s.endDate > $now)
RETURN s.subscriptionId AS subscriptionId,
	s.planId AS planId,
	s.paymentId AS paymentId,
	s.status AS status,
	s.amount AS amount,
	s.currency AS currency,
	s.startDate AS startDate,
	s.endDate AS endDate
ORDER BY s.startDate DESC
`

const countApplicantsCypher = `
MATCH (a:Applicant)
RETURN count(a) AS total
`
