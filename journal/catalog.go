package journal

import (
	"github.com/bcomnes/migrator"
)

// history is the schema history of the journal store. Entries are append-only:
// never edit a published migration, add a new one.
var history = []migrator.Migration{
	{
		Version: 1,
		Name:    "create_initial_tables",
		SQL: `create table projects
(
    id   integer not null
        constraint projects_pk
            primary key autoincrement,
    name text    not null
);

create table entries
(
    id         integer not null
        constraint entries_pk
            primary key,
    date       TEXT    not null,
    content    text,
    project_id integer not null
        constraint entries_projects_id_fk
            references projects
            on delete cascade
);`,
	},
	{
		Version: 2,
		Name:    "add_date_updated",
		SQL: `alter table entries
    add date_updated TEXT;`,
	},
	{
		Version: 3,
		Name:    "rename_date_created",
		Rebuilds: []migrator.Rebuild{{
			Table: "entries",
			Definition: `id           integer not null
        constraint entries_pk
            primary key,
    date_created TEXT    not null,
    content      text,
    project_id   integer not null
        constraint entries_projects_id_fk
            references projects
            on delete cascade,
    date_updated TEXT`,
			Columns: []migrator.ColumnMap{
				migrator.Copy("id"),
				migrator.Rename("date", "date_created"),
				migrator.Copy("content"),
				migrator.Copy("project_id"),
				migrator.Copy("date_updated"),
			},
		}},
	},
	{
		Version: 4,
		Name:    "add_settings_table",
		SQL: `create table settings
(
    key   text not null
        constraint settings_pk
            primary key,
    value text
);

create index settings_key_index
    on settings (key);`,
	},
	{
		Version: 5,
		Name:    "add_status_table",
		SQL: `create table status
(
    id         integer not null
        constraint status_pk
            primary key autoincrement,
    project    integer
        constraint status_projects_id_fk
            references projects
            on delete cascade,
    progress   integer,
    start_date text    not null,
    end_date   text    not null
);`,
	},
	{
		Version: 6,
		Name:    "update_status_table",
		Rebuilds: []migrator.Rebuild{{
			Table: "status",
			Definition: `id           integer not null
        constraint status_pk
            primary key autoincrement,
    project_id   integer
        constraint status_projects_id_fk
            references projects
            on delete cascade,
    progress     integer,
    start_date   text    not null,
    end_date     text    not null,
    date_created text    not null`,
			// date_created is new and NOT NULL; existing rows take their start date.
			Columns: []migrator.ColumnMap{
				migrator.Copy("id"),
				migrator.Rename("project", "project_id"),
				migrator.Copy("progress"),
				migrator.Copy("start_date"),
				migrator.Copy("end_date"),
				migrator.Rename("start_date", "date_created"),
			},
		}},
	},
	{
		Version: 7,
		Name:    "dont_cascade_delete",
		Rebuilds: []migrator.Rebuild{
			{
				Table: "status",
				Definition: `id           integer not null
        constraint status_pk
            primary key autoincrement,
    project_id   integer
        constraint status_projects_id_fk
            references projects,
    progress     integer,
    start_date   text    not null,
    end_date     text    not null,
    date_created text    not null`,
				Columns: []migrator.ColumnMap{
					migrator.Copy("id"),
					migrator.Copy("project_id"),
					migrator.Copy("progress"),
					migrator.Copy("start_date"),
					migrator.Copy("end_date"),
					migrator.Copy("date_created"),
				},
			},
			{
				Table: "entries",
				Definition: `id           integer not null
        constraint entries_pk
            primary key,
    date_created TEXT    not null,
    content      text,
    project_id   integer not null
        constraint entries_projects_id_fk
            references projects,
    date_updated TEXT`,
				Columns: []migrator.ColumnMap{
					migrator.Copy("id"),
					migrator.Copy("date_created"),
					migrator.Copy("content"),
					migrator.Copy("project_id"),
					migrator.Copy("date_updated"),
				},
			},
		},
	},
	{
		// Dropping projects with enforcement on would cascade into entries
		// and status; the runner suspends it for every rebuild.
		Version: 8,
		Name:    "add_project_parent",
		Rebuilds: []migrator.Rebuild{{
			Table: "projects",
			Definition: `id     integer not null
        constraint projects_pk
            primary key autoincrement,
    name   text    not null,
    parent integer
        constraint projects_projects_id_fk
            references projects`,
			Columns: []migrator.ColumnMap{
				migrator.Copy("id"),
				migrator.Copy("name"),
			},
		}},
	},
	{
		Version: 9,
		Name:    "add_project_type_column",
		SQL: `alter table projects
    add type TEXT;

update projects set type = 'project' where parent is null;

update projects set type = 'task' where parent is not null;`,
	},
}

// History returns a copy of the journal's migrations in version order.
func History() []migrator.Migration {
	out := make([]migrator.Migration, len(history))
	for i, m := range history {
		out[i] = m.Clone()
	}
	return out
}

// Catalog returns the validated journal catalog.
func Catalog() (*migrator.Catalog, error) {
	return migrator.Load(history...)
}
