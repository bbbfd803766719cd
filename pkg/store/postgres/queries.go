/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"k8s.io/utils/clock"

	rotaerrors "github.com/gmesched/rota/pkg/errors"
	"github.com/gmesched/rota/pkg/roster"
	"github.com/gmesched/rota/pkg/store"
)

// queries implements the port's Reader and Writer over either a *sql.DB or a
// *sql.Tx.
type queries struct {
	q     querier
	clock clock.Clock
}

func (s queries) LoadPeriod(ctx context.Context, start, end time.Time) (*store.PeriodSnapshot, error) {
	snap := &store.PeriodSnapshot{}
	var err error
	if snap.People, err = s.loadPeople(ctx); err != nil {
		return nil, err
	}
	if snap.Blocks, err = s.loadBlocks(ctx, start, end); err != nil {
		return nil, err
	}
	if snap.Templates, err = s.loadTemplates(ctx); err != nil {
		return nil, err
	}
	if snap.Assignments, err = s.loadAssignments(ctx, start, end); err != nil {
		return nil, err
	}
	if snap.Absences, err = s.loadAbsences(ctx, start, end); err != nil {
		return nil, err
	}
	if snap.InpatientPreloads, err = s.loadInpatientPreloads(ctx, start, end); err != nil {
		return nil, err
	}
	if snap.CallPreloads, err = s.loadCallPreloads(ctx, start, end); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s queries) loadPeople(ctx context.Context) ([]*roster.Person, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, name, kind, pgy_level, email, specialties, faculty_role, admin_type,
		       min_clinic_halfdays_per_week, max_clinic_halfdays_per_week,
		       sunday_call_count, weekday_call_count, fmit_weeks_count,
		       avoid_back_to_back_call, prefers_wednesday_call, created_at, updated_at
		FROM people ORDER BY id`)
	if err != nil {
		return nil, classify(err, "loading people")
	}
	defer rows.Close()
	var out []*roster.Person
	for rows.Next() {
		p := &roster.Person{}
		var pgy sql.NullInt64
		var email, facultyRole, adminType sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.Kind, &pgy, &email, pq.Array(&p.Specialties), &facultyRole, &adminType,
			&p.MinClinicHalfDaysPerWeek, &p.MaxClinicHalfDaysPerWeek,
			&p.SundayCallCount, &p.WeekdayCallCount, &p.FMITWeeksCount,
			&p.AvoidBackToBackCall, &p.PrefersWednesdayCall, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, classify(err, "scanning person")
		}
		if pgy.Valid {
			level := int(pgy.Int64)
			p.PGYLevel = &level
		}
		p.Email = email.String
		p.FacultyRole = facultyRole.String
		p.AdminType = roster.AdminType(adminType.String)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s queries) loadBlocks(ctx context.Context, start, end time.Time) ([]*roster.Block, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, date, time_of_day, block_number, is_weekend, is_holiday, COALESCE(holiday_name, '')
		FROM blocks WHERE date BETWEEN $1 AND $2
		ORDER BY date, time_of_day`, start, end)
	if err != nil {
		return nil, classify(err, "loading blocks")
	}
	defer rows.Close()
	var out []*roster.Block
	for rows.Next() {
		b := &roster.Block{}
		if err := rows.Scan(&b.ID, &b.Date, &b.TimeOfDay, &b.BlockNumber, &b.IsWeekend, &b.IsHoliday, &b.HolidayName); err != nil {
			return nil, classify(err, "scanning block")
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s queries) loadTemplates(ctx context.Context) ([]*roster.RotationTemplate, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, name, abbreviation, activity_type, allowed_person_types,
		       min_pgy_level, max_pgy_level, required_specialties, time_of_day,
		       counts_toward_physical_capacity, max_residents, call_hours
		FROM rotation_templates ORDER BY abbreviation`)
	if err != nil {
		return nil, classify(err, "loading rotation templates")
	}
	defer rows.Close()
	var out []*roster.RotationTemplate
	for rows.Next() {
		t := &roster.RotationTemplate{}
		var minPGY, maxPGY sql.NullInt64
		var tod sql.NullString
		var kinds []string
		if err := rows.Scan(&t.ID, &t.Name, &t.Abbreviation, &t.ActivityType, pq.Array(&kinds),
			&minPGY, &maxPGY, pq.Array(&t.RequiredSpecialties), &tod,
			&t.CountsTowardPhysicalCapacity, &t.MaxResidents, &t.CallHours); err != nil {
			return nil, classify(err, "scanning rotation template")
		}
		for _, k := range kinds {
			t.AllowedPersonTypes = append(t.AllowedPersonTypes, roster.PersonKind(k))
		}
		if minPGY.Valid {
			v := int(minPGY.Int64)
			t.MinPGYLevel = &v
		}
		if maxPGY.Valid {
			v := int(maxPGY.Int64)
			t.MaxPGYLevel = &v
		}
		if tod.Valid {
			v := roster.TimeOfDay(tod.String)
			t.TimeOfDay = &v
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s queries) loadAssignments(ctx context.Context, start, end time.Time) ([]*roster.Assignment, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT a.id, a.block_id, a.person_id, a.rotation_template_id, a.role,
		       COALESCE(a.activity_override, ''), COALESCE(a.notes, ''), COALESCE(a.override_reason, ''),
		       a.override_acknowledged_at, a.confidence, a.score, a.source,
		       COALESCE(a.created_by, ''), a.created_at, a.updated_at
		FROM assignments a JOIN blocks b ON b.id = a.block_id
		WHERE b.date BETWEEN $1 AND $2
		ORDER BY a.id`, start, end)
	if err != nil {
		return nil, classify(err, "loading assignments")
	}
	defer rows.Close()
	var out []*roster.Assignment
	for rows.Next() {
		a := &roster.Assignment{}
		var tplID uuid.NullUUID
		var ack sql.NullTime
		if err := rows.Scan(&a.ID, &a.BlockID, &a.PersonID, &tplID, &a.Role,
			&a.ActivityOverride, &a.Notes, &a.OverrideReason,
			&ack, &a.Confidence, &a.Score, &a.Source,
			&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, classify(err, "scanning assignment")
		}
		if tplID.Valid {
			id := tplID.UUID
			a.RotationTemplateID = &id
		}
		if ack.Valid {
			t := ack.Time
			a.OverrideAcknowledgedAt = &t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s queries) loadAbsences(ctx context.Context, start, end time.Time) ([]*roster.Absence, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, person_id, start_date, end_date, absence_type, is_blocking
		FROM absences WHERE start_date <= $2 AND end_date >= $1
		ORDER BY id`, start, end)
	if err != nil {
		return nil, classify(err, "loading absences")
	}
	defer rows.Close()
	var out []*roster.Absence
	for rows.Next() {
		a := &roster.Absence{}
		if err := rows.Scan(&a.ID, &a.PersonID, &a.StartDate, &a.EndDate, &a.Type, &a.IsBlocking); err != nil {
			return nil, classify(err, "scanning absence")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s queries) loadInpatientPreloads(ctx context.Context, start, end time.Time) ([]*roster.InpatientPreload, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, person_id, rotation_type, start_date, end_date, fmit_week
		FROM inpatient_preloads WHERE start_date <= $2 AND end_date >= $1
		ORDER BY id`, start, end)
	if err != nil {
		return nil, classify(err, "loading inpatient preloads")
	}
	defer rows.Close()
	var out []*roster.InpatientPreload
	for rows.Next() {
		p := &roster.InpatientPreload{}
		var week sql.NullInt64
		if err := rows.Scan(&p.ID, &p.PersonID, &p.RotationType, &p.StartDate, &p.EndDate, &week); err != nil {
			return nil, classify(err, "scanning inpatient preload")
		}
		if week.Valid {
			w := int(week.Int64)
			p.FMITWeek = &w
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s queries) loadCallPreloads(ctx context.Context, start, end time.Time) ([]*roster.CallPreload, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, person_id, call_date, call_type
		FROM resident_call_preloads WHERE call_date BETWEEN $1 AND $2
		ORDER BY id`, start, end)
	if err != nil {
		return nil, classify(err, "loading call preloads")
	}
	defer rows.Close()
	var out []*roster.CallPreload
	for rows.Next() {
		p := &roster.CallPreload{}
		if err := rows.Scan(&p.ID, &p.PersonID, &p.CallDate, &p.CallType); err != nil {
			return nil, classify(err, "scanning call preload")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s queries) GetPerson(ctx context.Context, id uuid.UUID) (*roster.Person, error) {
	row := s.q.QueryRowContext(ctx, `SELECT id, name, kind, pgy_level FROM people WHERE id = $1`, id)
	p := &roster.Person{}
	var pgy sql.NullInt64
	if err := row.Scan(&p.ID, &p.Name, &p.Kind, &pgy); err != nil {
		return nil, classify(err, "person %s", id)
	}
	if pgy.Valid {
		level := int(pgy.Int64)
		p.PGYLevel = &level
	}
	return p, nil
}

func (s queries) GetBlock(ctx context.Context, id uuid.UUID) (*roster.Block, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, date, time_of_day, block_number, is_weekend, is_holiday, COALESCE(holiday_name, '')
		FROM blocks WHERE id = $1`, id)
	b := &roster.Block{}
	if err := row.Scan(&b.ID, &b.Date, &b.TimeOfDay, &b.BlockNumber, &b.IsWeekend, &b.IsHoliday, &b.HolidayName); err != nil {
		return nil, classify(err, "block %s", id)
	}
	return b, nil
}

func (s queries) GetAssignment(ctx context.Context, id uuid.UUID) (*roster.Assignment, error) {
	return s.assignmentWhere(ctx, `a.id = $1`, id)
}

func (s queries) FindAssignmentByBlockPerson(ctx context.Context, blockID, personID uuid.UUID) (*roster.Assignment, error) {
	return s.assignmentWhere(ctx, `a.block_id = $1 AND a.person_id = $2`, blockID, personID)
}

func (s queries) assignmentWhere(ctx context.Context, where string, args ...interface{}) (*roster.Assignment, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT a.id, a.block_id, a.person_id, a.rotation_template_id, a.role,
		       COALESCE(a.activity_override, ''), COALESCE(a.notes, ''), COALESCE(a.override_reason, ''),
		       a.override_acknowledged_at, a.confidence, a.score, a.source,
		       COALESCE(a.created_by, ''), a.created_at, a.updated_at
		FROM assignments a WHERE `+where, args...)
	a := &roster.Assignment{}
	var tplID uuid.NullUUID
	var ack sql.NullTime
	if err := row.Scan(&a.ID, &a.BlockID, &a.PersonID, &tplID, &a.Role,
		&a.ActivityOverride, &a.Notes, &a.OverrideReason,
		&ack, &a.Confidence, &a.Score, &a.Source,
		&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, classify(err, "assignment lookup")
	}
	if tplID.Valid {
		id := tplID.UUID
		a.RotationTemplateID = &id
	}
	if ack.Valid {
		t := ack.Time
		a.OverrideAcknowledgedAt = &t
	}
	return a, nil
}

func (s queries) GetSwap(ctx context.Context, id uuid.UUID) (*roster.SwapRecord, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, source_person_id, source_week_start, target_person_id, target_week_start,
		       swap_type, status, preference_tags, created_at, updated_at
		FROM swap_records WHERE id = $1`, id)
	return scanSwap(row)
}

func (s queries) ListPendingSwaps(ctx context.Context) ([]*roster.SwapRecord, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, source_person_id, source_week_start, target_person_id, target_week_start,
		       swap_type, status, preference_tags, created_at, updated_at
		FROM swap_records WHERE status = $1 ORDER BY id`, roster.SwapPending)
	if err != nil {
		return nil, classify(err, "listing pending swaps")
	}
	defer rows.Close()
	var out []*roster.SwapRecord
	for rows.Next() {
		r, err := scanSwap(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSwap(row scanner) (*roster.SwapRecord, error) {
	r := &roster.SwapRecord{}
	var target uuid.NullUUID
	var targetWeek sql.NullTime
	if err := row.Scan(&r.ID, &r.SourcePersonID, &r.SourceWeekStart, &target, &targetWeek,
		&r.Type, &r.Status, pq.Array(&r.PreferenceTags), &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, classify(err, "scanning swap record")
	}
	if target.Valid {
		id := target.UUID
		r.TargetPersonID = &id
	}
	if targetWeek.Valid {
		t := targetWeek.Time
		r.TargetWeekStart = &t
	}
	return r, nil
}

func (s queries) SaveAssignment(ctx context.Context, a *roster.Assignment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := s.clock.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO assignments (id, block_id, person_id, rotation_template_id, role,
		                         activity_override, notes, override_reason, override_acknowledged_at,
		                         confidence, score, source, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		a.ID, a.BlockID, a.PersonID, a.RotationTemplateID, a.Role,
		nullString(a.ActivityOverride), nullString(a.Notes), nullString(a.OverrideReason), a.OverrideAcknowledgedAt,
		a.Confidence, a.Score, a.Source, nullString(a.CreatedBy), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return classify(err, "saving assignment for block %s person %s", a.BlockID, a.PersonID)
	}
	return nil
}

func (s queries) UpdateAssignment(ctx context.Context, id uuid.UUID, patch store.AssignmentPatch, expectedUpdatedAt time.Time) (*roster.Assignment, error) {
	current, err := s.GetAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.RotationTemplateID != nil {
		current.RotationTemplateID = patch.RotationTemplateID
	}
	if patch.Role != nil {
		current.Role = *patch.Role
	}
	if patch.ActivityOverride != nil {
		current.ActivityOverride = *patch.ActivityOverride
	}
	if patch.Notes != nil {
		current.Notes = *patch.Notes
	}
	if patch.OverrideReason != nil {
		current.OverrideReason = *patch.OverrideReason
	}
	if patch.Confidence != nil {
		current.Confidence = *patch.Confidence
	}
	if patch.Score != nil {
		current.Score = *patch.Score
	}
	if err := current.Validate(); err != nil {
		return nil, err
	}
	current.UpdatedAt = s.clock.Now().UTC()
	// The WHERE clause on updated_at is the optimistic lock: zero rows means
	// someone else won.
	res, err := s.q.ExecContext(ctx, `
		UPDATE assignments
		SET rotation_template_id = $2, role = $3, activity_override = $4, notes = $5,
		    override_reason = $6, confidence = $7, score = $8, updated_at = $9
		WHERE id = $1 AND date_trunc('microsecond', updated_at) = date_trunc('microsecond', $10::timestamptz)`,
		id, current.RotationTemplateID, current.Role, nullString(current.ActivityOverride), nullString(current.Notes),
		nullString(current.OverrideReason), current.Confidence, current.Score, current.UpdatedAt,
		expectedUpdatedAt.UTC())
	if err != nil {
		return nil, classify(err, "updating assignment %s", id)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, classify(err, "updating assignment %s", id)
	}
	if affected == 0 {
		return nil, rotaerrors.Conflict("assignment %s was modified concurrently", id)
	}
	return current, nil
}

func (s queries) DeleteAssignment(ctx context.Context, id uuid.UUID) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return classify(err, "deleting assignment %s", id)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return classify(err, "deleting assignment %s", id)
	}
	if affected == 0 {
		return rotaerrors.NotFound("assignment %s", id)
	}
	return nil
}

func (s queries) SaveSwap(ctx context.Context, r *roster.SwapRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO swap_records (id, source_person_id, source_week_start, target_person_id,
		                          target_week_start, swap_type, status, preference_tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
		    target_person_id = EXCLUDED.target_person_id,
		    target_week_start = EXCLUDED.target_week_start,
		    status = EXCLUDED.status,
		    updated_at = EXCLUDED.updated_at`,
		r.ID, r.SourcePersonID, r.SourceWeekStart, r.TargetPersonID,
		r.TargetWeekStart, r.Type, r.Status, pq.Array(r.PreferenceTags), r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return classify(err, "saving swap %s", r.ID)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
