package deck

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/nerrad567/streamdeckx/internal/action"
	"github.com/nerrad567/streamdeckx/internal/infrastructure/database"
	"github.com/nerrad567/streamdeckx/internal/style"
)

// ErrExists is returned by Create for a serial that is already stored.
var ErrExists = errors.New("deck: already exists")

// Record is a stored deck row.
type Record struct {
	Serial  string `json:"serial"`
	Name    string `json:"name"`
	Kind    Kind   `json:"kind"`
	Columns int    `json:"columns"`
	Rows    int    `json:"rows"`
}

// Repository persists decks with their buttons and actions. Deleting a
// deck cascades to its buttons and their actions.
type Repository interface {
	Store

	// Create inserts d with every button and action in one transaction
	// and assigns the new storage ids. Returns ErrExists for a known serial.
	Create(ctx context.Context, d *Deck) error

	// Load rebuilds the deck stored under serial. cfg supplies the
	// collaborators; identity, kind and grid come from storage. Returns a
	// NotFoundError for an unknown serial.
	Load(ctx context.Context, serial string, cfg Config) (*Deck, error)

	// List returns every stored deck ordered by serial.
	List(ctx context.Context) ([]Record, error)

	// Delete removes the deck and, by cascade, its buttons and actions.
	Delete(ctx context.Context, serial string) error

	// ButtonStyle reads the stored style of one button.
	ButtonStyle(ctx context.Context, buttonID int64) (style.Style, error)
}

// SQLiteRepository implements Repository on the deck, button and action
// tables.
type SQLiteRepository struct {
	db     *sql.DB
	logger Logger
}

// NewSQLiteRepository creates a repository on an open database whose
// connections enforce foreign keys.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, logger: noopLogger{}}
}

// SetLogger sets the logger used for skipped rows during Load.
func (r *SQLiteRepository) SetLogger(logger Logger) {
	r.logger = logger
}

const insertButton = `
	INSERT INTO button (deck_id, position, font, font_size, label, background_color, text_color, background_image)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

const insertAction = `
	INSERT INTO action (type, button_id, action_order, parameter)
	VALUES (?, ?, ?, ?)`

// Create inserts the deck graph in a single transaction.
func (r *SQLiteRepository) Create(ctx context.Context, d *Deck) error {
	buttons := d.Buttons()
	buttonIDs := make([]int64, len(buttons))
	actionIDs := make([][]int64, len(buttons))

	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM deck WHERE id = ?", d.Serial()).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking deck: %w", err)
		}
		if exists > 0 {
			return fmt.Errorf("%w: %s", ErrExists, d.Serial())
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO deck (id, name, type, num_cols, num_rows) VALUES (?, ?, ?, ?, ?)",
			d.Serial(), d.Name(), string(d.Kind()), d.Columns(), d.Rows(),
		); err != nil {
			return fmt.Errorf("inserting deck: %w", err)
		}

		for i, b := range buttons {
			id, err := insertButtonTx(ctx, tx, d.Serial(), b.Position(), b.Style())
			if err != nil {
				return err
			}
			buttonIDs[i] = id

			for _, a := range b.Actions() {
				res, err := tx.ExecContext(ctx, insertAction, string(a.Type()), id, a.Order(), a.Parameter())
				if err != nil {
					return fmt.Errorf("inserting action for button %d: %w", b.Position(), err)
				}
				actionID, err := res.LastInsertId()
				if err != nil {
					return fmt.Errorf("reading action id: %w", err)
				}
				actionIDs[i] = append(actionIDs[i], actionID)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for i, b := range buttons {
		b.mu.Lock()
		b.id = buttonIDs[i]
		for j, a := range b.actions {
			rebuilt, err := d.actions.New(a.Type(), a.Parameter(), a.Order(), actionIDs[i][j])
			if err != nil {
				b.mu.Unlock()
				return err
			}
			b.actions[j] = rebuilt
		}
		b.mu.Unlock()
	}
	return nil
}

func insertButtonTx(ctx context.Context, tx *sql.Tx, serial string, position int, s style.Style) (int64, error) {
	res, err := tx.ExecContext(ctx, insertButton,
		serial, position, nullString(s.Font), s.FontSize, s.Label,
		s.BackgroundColor, s.TextColor, nullString(s.BackgroundImage),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting button %d: %w", position, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading button id: %w", err)
	}
	return id, nil
}

// Load hydrates a deck. Button rows missing for some positions are
// recreated with the default style in one transaction. Stored actions with
// an unknown type are logged and skipped.
func (r *SQLiteRepository) Load(ctx context.Context, serial string, cfg Config) (*Deck, error) {
	var (
		name, kindName sql.NullString
		cols, rows     sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT name, type, num_cols, num_rows FROM deck WHERE id = ?", serial,
	).Scan(&name, &kindName, &cols, &rows)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Entity: "deck", Key: serial}
		}
		return nil, fmt.Errorf("querying deck %s: %w", serial, err)
	}

	kind, err := ParseKind(kindName.String)
	if err != nil {
		if kind, err = KindFromDisplayName(kindName.String); err != nil {
			return nil, fmt.Errorf("deck %s: %w", serial, err)
		}
	}

	cfg.Serial = serial
	cfg.Name = name.String
	cfg.Kind = kind
	cfg.Columns = int(cols.Int64)
	cfg.Rows = int(rows.Int64)
	if cfg.Store == nil {
		cfg.Store = r
	}
	d, err := New(cfg)
	if err != nil {
		return nil, err
	}

	if err := r.loadButtons(ctx, d); err != nil {
		return nil, err
	}
	if err := r.repairButtons(ctx, d); err != nil {
		return nil, err
	}
	if err := r.loadActions(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *SQLiteRepository) loadButtons(ctx context.Context, d *Deck) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, position, font, font_size, label, background_color, text_color, background_image
		FROM button
		WHERE deck_id = ?
		ORDER BY position, id`, d.Serial())
	if err != nil {
		return fmt.Errorf("querying buttons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id       int64
			position int
			s        style.Style
		)
		if err := scanButton(rows, &id, &position, &s); err != nil {
			return err
		}

		b, err := d.Button(position)
		if err != nil {
			r.logger.Warn("skipping button outside grid", "serial", d.Serial(), "position", position)
			continue
		}
		b.mu.Lock()
		// The lowest id wins if a position was stored twice.
		if b.id == 0 {
			b.id = id
			b.style = s
		}
		b.mu.Unlock()
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating buttons: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanButton reads one button row. A row with no font, label or
// background image has never been styled and gets the default style.
func scanButton(row scanner, id *int64, position *int, s *style.Style) error {
	var (
		font, label, bg, fg, img sql.NullString
		fontSize                 sql.NullInt64
	)
	if err := row.Scan(id, position, &font, &fontSize, &label, &bg, &fg, &img); err != nil {
		return fmt.Errorf("scanning button: %w", err)
	}

	if !font.Valid && !label.Valid && !img.Valid {
		*s = style.Default(*position)
		return nil
	}

	*s = style.Style{
		Label:           label.String,
		Font:            font.String,
		FontSize:        style.DefaultFontSize,
		BackgroundColor: style.DefaultBackgroundColor,
		TextColor:       style.DefaultTextColor,
		BackgroundImage: img.String,
	}
	if fontSize.Valid && fontSize.Int64 > 0 {
		s.FontSize = int(fontSize.Int64)
	}
	if bg.Valid && bg.String != "" {
		s.BackgroundColor = bg.String
	}
	if fg.Valid && fg.String != "" {
		s.TextColor = fg.String
	}
	return nil
}

func (r *SQLiteRepository) repairButtons(ctx context.Context, d *Deck) error {
	var missing []*Button
	for _, b := range d.buttons {
		if b.id == 0 {
			missing = append(missing, b)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	ids := make([]int64, len(missing))
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for i, b := range missing {
			id, err := insertButtonTx(ctx, tx, d.Serial(), b.position, b.style)
			if err != nil {
				return err
			}
			ids[i] = id
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("repairing buttons of %s: %w", d.Serial(), err)
	}

	for i, b := range missing {
		b.mu.Lock()
		b.id = ids[i]
		b.mu.Unlock()
	}
	r.logger.Info("recreated missing buttons", "serial", d.Serial(), "count", len(missing))
	return nil
}

func (r *SQLiteRepository) loadActions(ctx context.Context, d *Deck) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.type, a.button_id, a.action_order, a.parameter
		FROM action a
		JOIN button b ON b.id = a.button_id
		WHERE b.deck_id = ?
		ORDER BY a.button_id, a.action_order, a.id`, d.Serial())
	if err != nil {
		return fmt.Errorf("querying actions: %w", err)
	}
	defer rows.Close()

	byButton := make(map[int64]*Button, len(d.buttons))
	for _, b := range d.buttons {
		byButton[b.id] = b
	}
	loaded := make(map[*Button][]action.Action)

	for rows.Next() {
		var (
			id, buttonID int64
			typ, param   sql.NullString
			order        sql.NullInt64
		)
		if err := rows.Scan(&id, &typ, &buttonID, &order, &param); err != nil {
			return fmt.Errorf("scanning action: %w", err)
		}

		b, ok := byButton[buttonID]
		if !ok {
			continue
		}
		a, err := d.actions.NewFromStored(typ.String, param.String, int(order.Int64), id)
		if err != nil {
			r.logger.Warn("skipping stored action", "serial", d.Serial(), "action_id", id, "error", err)
			continue
		}
		loaded[b] = append(loaded[b], a)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating actions: %w", err)
	}

	for b, actions := range loaded {
		b.setActions(actions)
	}
	return nil
}

// List returns every stored deck.
func (r *SQLiteRepository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, type, num_cols, num_rows FROM deck ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying decks: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec        Record
			name, kind sql.NullString
			cols, rws  sql.NullInt64
		)
		if err := rows.Scan(&rec.Serial, &name, &kind, &cols, &rws); err != nil {
			return nil, fmt.Errorf("scanning deck: %w", err)
		}
		rec.Name, rec.Kind = name.String, Kind(kind.String)
		rec.Columns, rec.Rows = int(cols.Int64), int(rws.Int64)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating decks: %w", err)
	}
	return records, nil
}

// Delete removes a deck and everything it owns.
func (r *SQLiteRepository) Delete(ctx context.Context, serial string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM deck WHERE id = ?", serial)
	if err != nil {
		return fmt.Errorf("deleting deck %s: %w", serial, err)
	}
	return expectOne(res, "deck", serial)
}

// ButtonStyle reads one button's stored style.
func (r *SQLiteRepository) ButtonStyle(ctx context.Context, buttonID int64) (style.Style, error) {
	if buttonID == 0 {
		return style.Style{}, &MissingIdentityError{Entity: "button"}
	}
	var (
		id       int64
		position int
		s        style.Style
	)
	row := r.db.QueryRowContext(ctx, `
		SELECT id, position, font, font_size, label, background_color, text_color, background_image
		FROM button WHERE id = ?`, buttonID)
	if err := scanButton(row, &id, &position, &s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return style.Style{}, &NotFoundError{Entity: "button", Key: strconv.FormatInt(buttonID, 10)}
		}
		return style.Style{}, err
	}
	return s, nil
}

// UpdateButtonStyle writes every style column of a button.
func (r *SQLiteRepository) UpdateButtonStyle(ctx context.Context, buttonID int64, s style.Style) error {
	if buttonID == 0 {
		return &MissingIdentityError{Entity: "button"}
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE button
		SET font = ?, font_size = ?, label = ?, background_color = ?, text_color = ?, background_image = ?
		WHERE id = ?`,
		nullString(s.Font), s.FontSize, s.Label, s.BackgroundColor, s.TextColor, nullString(s.BackgroundImage),
		buttonID,
	)
	if err != nil {
		return fmt.Errorf("updating button %d: %w", buttonID, err)
	}
	return expectOne(res, "button", strconv.FormatInt(buttonID, 10))
}

// CreateAction inserts a for the button and returns the new id.
func (r *SQLiteRepository) CreateAction(ctx context.Context, buttonID int64, a action.Action) (int64, error) {
	if buttonID == 0 {
		return 0, &MissingIdentityError{Entity: "button"}
	}
	res, err := r.db.ExecContext(ctx, insertAction, string(a.Type()), buttonID, a.Order(), a.Parameter())
	if err != nil {
		return 0, fmt.Errorf("inserting action: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading action id: %w", err)
	}
	return id, nil
}

// UpdateAction writes the order and parameter of a.
func (r *SQLiteRepository) UpdateAction(ctx context.Context, a action.Action) error {
	if a.ID() == 0 {
		return &MissingIdentityError{Entity: "action"}
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE action SET action_order = ?, parameter = ? WHERE id = ?",
		a.Order(), a.Parameter(), a.ID(),
	)
	if err != nil {
		return fmt.Errorf("updating action %d: %w", a.ID(), err)
	}
	return expectOne(res, "action", strconv.FormatInt(a.ID(), 10))
}

// DeleteAction removes one action.
func (r *SQLiteRepository) DeleteAction(ctx context.Context, id int64) error {
	if id == 0 {
		return &MissingIdentityError{Entity: "action"}
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM action WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting action %d: %w", id, err)
	}
	return expectOne(res, "action", strconv.FormatInt(id, 10))
}

func expectOne(res sql.Result, entity, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return &NotFoundError{Entity: entity, Key: key}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
